package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Parse decodes one JSON document, keeping key order and number literals.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("parsing document: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Value{}, fmt.Errorf("parsing document: unexpected data after top-level value")
	}
	return v, nil
}

// MustParse is Parse for literals in tests and embedded fixtures.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case nil:
		return NullValue(), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	case json.Delim:
		switch t {
		case '{':
			var members []Member
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				members = append(members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(members...), nil
		case '[':
			items := []Value{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: Array, items: items}, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// Compact renders v as JSON without insignificant whitespace.
func (v Value) Compact() []byte {
	var buf bytes.Buffer
	v.encode(&buf, "", "", "")
	return buf.Bytes()
}

// Indent renders v with one line per member and the given indent unit.
func (v Value) Indent(indent string) []byte {
	var buf bytes.Buffer
	v.encode(&buf, "\n", indent, "")
	return buf.Bytes()
}

// Pretty renders v the way the site's data files are stored: two-space
// indent, no trailing newline.
func (v Value) Pretty() []byte {
	return v.Indent("  ")
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	return v.Compact(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) encode(buf *bytes.Buffer, newline, indent, prefix string) {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.boolean))
	case Number:
		buf.WriteString(v.literal)
	case String:
		writeString(buf, v.literal)
	case Array:
		if len(v.items) == 0 {
			buf.WriteString("[]")
			return
		}
		inner := prefix + indent
		buf.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(newline)
			buf.WriteString(inner)
			it.encode(buf, newline, indent, inner)
		}
		buf.WriteString(newline)
		buf.WriteString(prefix)
		buf.WriteByte(']')
	case Object:
		if len(v.members) == 0 {
			buf.WriteString("{}")
			return
		}
		inner := prefix + indent
		sep := ":"
		if newline != "" {
			sep = ": "
		}
		buf.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.WriteString(newline)
			buf.WriteString(inner)
			writeString(buf, m.Key)
			buf.WriteString(sep)
			m.Value.encode(buf, newline, indent, inner)
		}
		buf.WriteString(newline)
		buf.WriteString(prefix)
		buf.WriteByte('}')
	}
}

func writeString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}

// ToAny converts v to plain Go values (map[string]any, []any, float64,
// string, bool, nil) for libraries that walk generic data. Key order is lost.
func (v Value) ToAny() any {
	switch v.kind {
	case Bool:
		return v.boolean
	case Number:
		return v.Float()
	case String:
		return v.literal
	case Array:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.ToAny()
		}
		return out
	case Object:
		out := make(map[string]any, len(v.members))
		for _, m := range v.members {
			out[m.Key] = m.Value.ToAny()
		}
		return out
	default:
		return nil
	}
}

// FromAny converts plain Go values into a Value. Map keys are sorted since Go
// maps carry no order.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberLiteral(t.String())
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return IntValue(int64(t)), nil
	case int64:
		return IntValue(t), nil
	case uint64:
		if t > math.MaxInt64 {
			return NumberLiteral(strconv.FormatUint(t, 10))
		}
		return IntValue(int64(t)), nil
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return Value{kind: Array, items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		members := make([]Member, len(keys))
		for i, k := range keys {
			v, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k, err)
			}
			members[i] = Member{Key: k, Value: v}
		}
		return Value{kind: Object, members: members}, nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported Go type %T", ErrKindMismatch, x)
	}
}

// Describe returns a short human summary, used in list views.
func (v Value) Describe() string {
	switch v.kind {
	case Array:
		return fmt.Sprintf("%d items", len(v.items))
	case Object:
		return fmt.Sprintf("%d fields", len(v.members))
	case String:
		s := strings.ReplaceAll(v.literal, "\n", " ")
		return strconv.Quote(s)
	default:
		return v.String()
	}
}
