// Package content models section documents as immutable JSON values.
//
// A Value is a tagged union over the six JSON kinds. Objects keep their key
// order and numbers keep their source literal, so a document that is loaded
// and saved without edits is written back unchanged apart from whitespace.
// Every edit returns a new Value; no method mutates its receiver.
package content

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Kind identifies which JSON type a Value holds.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidPath is returned when a path does not address a value.
	ErrInvalidPath = errors.New("invalid path")
	// ErrInvalidNumber is returned when text cannot become a finite JSON number.
	ErrInvalidNumber = errors.New("invalid number")
	// ErrKindMismatch is returned when an operation needs a different kind.
	ErrKindMismatch = errors.New("kind mismatch")
)

// Member is one key/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is an immutable JSON value. The zero Value is null.
type Value struct {
	kind    Kind
	boolean bool
	literal string // number literal or string contents
	items   []Value
	members []Member
}

// NullValue returns JSON null.
func NullValue() Value { return Value{} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: Bool, boolean: b} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: String, literal: s} }

// NumberValue wraps a finite float. NaN and infinities have no JSON form and
// yield ErrInvalidNumber.
func NumberValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("%w: %v", ErrInvalidNumber, f)
	}
	return Value{kind: Number, literal: formatFloat(f)}, nil
}

// IntValue wraps an integer.
func IntValue(i int64) Value {
	return Value{kind: Number, literal: strconv.FormatInt(i, 10)}
}

// NumberLiteral wraps a number literal as written in a JSON document.
func NumberLiteral(lit string) (Value, error) {
	if !isJSONNumber(lit) {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidNumber, lit)
	}
	return Value{kind: Number, literal: lit}, nil
}

// ParseNumber coerces free-form input to a number the way a numeric text box
// does: surrounding space is ignored and empty input means zero.
func ParseNumber(raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return IntValue(0), nil
	}
	if isJSONNumber(s) {
		return Value{kind: Number, literal: s}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %q", ErrInvalidNumber, raw)
	}
	return NumberValue(f)
}

// ArrayValue builds an array from items.
func ArrayValue(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: Array, items: out}
}

// ObjectValue builds an object from members. A repeated key keeps its first
// position and its last value.
func ObjectValue(members ...Member) Value {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if i := indexOfKey(out, m.Key); i >= 0 {
			out[i].Value = m.Value
			continue
		}
		out = append(out, m)
	}
	return Value{kind: Object, members: out}
}

// M is shorthand for a Member literal.
func M(key string, v Value) Member { return Member{Key: key, Value: v} }

// Kind reports the JSON kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == Null }

// Bool returns the boolean payload; false for other kinds.
func (v Value) Bool() bool { return v.kind == Bool && v.boolean }

// Str returns the string payload; empty for other kinds.
func (v Value) Str() string {
	if v.kind != String {
		return ""
	}
	return v.literal
}

// Literal returns the number literal as it will be written.
func (v Value) Literal() string {
	if v.kind != Number {
		return ""
	}
	return v.literal
}

// Float returns the numeric payload; 0 for other kinds.
func (v Value) Float() float64 {
	if v.kind != Number {
		return 0
	}
	f, _ := strconv.ParseFloat(v.literal, 64)
	return f
}

// Len returns the number of items or members.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.members)
	default:
		return 0
	}
}

// Item returns element i of an array.
func (v Value) Item(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Items returns a copy of the array elements.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Get returns the member value stored under key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	if i := indexOfKey(v.members, key); i >= 0 {
		return v.members[i].Value, true
	}
	return Value{}, false
}

// Keys returns object keys in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.members))
	for i, m := range v.members {
		keys[i] = m.Key
	}
	return keys
}

// Members returns a copy of the object members in document order.
func (v Value) Members() []Member {
	if v.kind != Object {
		return nil
	}
	out := make([]Member, len(v.members))
	copy(out, v.members)
	return out
}

// With returns a copy of the object with key set to val. New keys are appended.
func (v Value) With(key string, val Value) (Value, error) {
	if v.kind != Object {
		return Value{}, fmt.Errorf("%w: set %q on %s", ErrKindMismatch, key, v.kind)
	}
	members := make([]Member, len(v.members), len(v.members)+1)
	copy(members, v.members)
	if i := indexOfKey(members, key); i >= 0 {
		members[i].Value = val
	} else {
		members = append(members, Member{Key: key, Value: val})
	}
	return Value{kind: Object, members: members}, nil
}

// Without returns a copy of the object lacking key.
func (v Value) Without(key string) (Value, error) {
	if v.kind != Object {
		return Value{}, fmt.Errorf("%w: delete %q on %s", ErrKindMismatch, key, v.kind)
	}
	members := make([]Member, 0, len(v.members))
	for _, m := range v.members {
		if m.Key != key {
			members = append(members, m)
		}
	}
	return Value{kind: Object, members: members}, nil
}

// Append returns a copy of the array with item added at the end.
func (v Value) Append(item Value) (Value, error) {
	if v.kind != Array {
		return Value{}, fmt.Errorf("%w: append to %s", ErrKindMismatch, v.kind)
	}
	items := make([]Value, len(v.items), len(v.items)+1)
	copy(items, v.items)
	return Value{kind: Array, items: append(items, item)}, nil
}

// SetItem returns a copy of the array with element i replaced.
func (v Value) SetItem(i int, item Value) (Value, error) {
	if v.kind != Array {
		return Value{}, fmt.Errorf("%w: index %d on %s", ErrKindMismatch, i, v.kind)
	}
	if i < 0 || i >= len(v.items) {
		return Value{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidPath, i, len(v.items))
	}
	items := v.Items()
	items[i] = item
	return Value{kind: Array, items: items}, nil
}

// RemoveItem returns a copy of the array without element i.
func (v Value) RemoveItem(i int) (Value, error) {
	if v.kind != Array {
		return Value{}, fmt.Errorf("%w: remove from %s", ErrKindMismatch, v.kind)
	}
	if i < 0 || i >= len(v.items) {
		return Value{}, fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidPath, i, len(v.items))
	}
	items := make([]Value, 0, len(v.items)-1)
	items = append(items, v.items[:i]...)
	items = append(items, v.items[i+1:]...)
	return Value{kind: Array, items: items}, nil
}

// SwapItems returns a copy of the array with elements i and j exchanged.
func (v Value) SwapItems(i, j int) (Value, error) {
	if v.kind != Array {
		return Value{}, fmt.Errorf("%w: swap in %s", ErrKindMismatch, v.kind)
	}
	n := len(v.items)
	if i < 0 || i >= n || j < 0 || j >= n {
		return Value{}, fmt.Errorf("%w: swap %d,%d out of range [0,%d)", ErrInvalidPath, i, j, n)
	}
	items := v.Items()
	items[i], items[j] = items[j], items[i]
	return Value{kind: Array, items: items}, nil
}

// Clone returns a deep copy that shares no backing storage with v.
func (v Value) Clone() Value {
	switch v.kind {
	case Array:
		items := make([]Value, len(v.items))
		for i, it := range v.items {
			items[i] = it.Clone()
		}
		return Value{kind: Array, items: items}
	case Object:
		members := make([]Member, len(v.members))
		for i, m := range v.members {
			members[i] = Member{Key: m.Key, Value: m.Value.Clone()}
		}
		return Value{kind: Object, members: members}
	default:
		return v
	}
}

// Equal reports deep equality. Numbers compare by value, so 1.0 equals 1.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Bool:
		return a.boolean == b.boolean
	case String:
		return a.literal == b.literal
	case Number:
		return numbersEqual(a.literal, b.literal)
	case Array:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}

// numbersEqual compares two JSON number literals as exact decimals, so
// 1.0 equals 1 but values that only round to the same float64 differ.
func numbersEqual(a, b string) bool {
	if a == b {
		return true
	}
	x, ok := new(big.Rat).SetString(a)
	if !ok {
		return false
	}
	y, ok := new(big.Rat).SetString(b)
	if !ok {
		return false
	}
	return x.Cmp(y) == 0
}

// String renders v as compact JSON.
func (v Value) String() string {
	return string(v.Compact())
}

func indexOfKey(members []Member, key string) int {
	for i, m := range members {
		if m.Key == key {
			return i
		}
	}
	return -1
}

// formatFloat matches the number formatting browsers use when serializing.
func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads exponents to two digits ("1e-07"); JSON writers do not.
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[:1]
		digits := strings.TrimLeft(exp[1:], "0")
		if digits == "" {
			digits = "0"
		}
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// isJSONNumber checks the RFC 8259 number grammar.
func isJSONNumber(s string) bool {
	i := 0
	n := len(s)
	if i < n && s[i] == '-' {
		i++
	}
	if i >= n {
		return false
	}
	switch {
	case s[i] == '0':
		i++
	case s[i] >= '1' && s[i] <= '9':
		for i < n && isDigit(s[i]) {
			i++
		}
	default:
		return false
	}
	if i < n && s[i] == '.' {
		i++
		start := i
		for i < n && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	if i < n && (s[i] == 'e' || s[i] == 'E') {
		i++
		if i < n && (s[i] == '+' || s[i] == '-') {
			i++
		}
		start := i
		for i < n && isDigit(s[i]) {
			i++
		}
		if i == start {
			return false
		}
	}
	return i == n
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
