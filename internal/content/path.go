package content

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one hop of a Path: an object key or an array index.
type Step struct {
	key     string
	index   int
	isIndex bool
}

// Key addresses an object member.
func Key(k string) Step { return Step{key: k} }

// Index addresses an array element.
func Index(i int) Step { return Step{index: i, isIndex: true} }

// IsIndex reports whether the step addresses an array element.
func (s Step) IsIndex() bool { return s.isIndex }

// Key returns the member key for key steps.
func (s Step) Key() string { return s.key }

// Index returns the element index for index steps.
func (s Step) Index() int { return s.index }

func (s Step) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.key
}

// Path addresses a value inside a document. The empty path is the root.
type Path []Step

// Root is the empty path.
var Root = Path{}

// P builds a path from keys (string) and indexes (int).
func P(parts ...any) Path {
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		switch x := part.(type) {
		case string:
			p = append(p, Key(x))
		case int:
			p = append(p, Index(x))
		case Step:
			p = append(p, x)
		default:
			panic(fmt.Sprintf("content.P: unsupported path part %T", part))
		}
	}
	return p
}

// Child returns a new path extended by s. The receiver is never aliased.
func (p Path) Child(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// Parent returns the path without its last step.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	out := make(Path, len(p)-1)
	copy(out, p[:len(p)-1])
	return out
}

// Last returns the final step.
func (p Path) Last() (Step, bool) {
	if len(p) == 0 {
		return Step{}, false
	}
	return p[len(p)-1], true
}

// Equal compares two paths step by step.
func (p Path) Equal(q Path) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether q is an ancestor of (or equal to) p.
func (p Path) HasPrefix(q Path) bool {
	return len(q) <= len(p) && p[:len(q)].Equal(q)
}

// String joins the steps with dots, e.g. "links.0.url".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ".")
}

// ParsePath splits a dot path. Purely numeric segments become index steps.
func ParsePath(s string) Path {
	if s == "" {
		return Root
	}
	segs := strings.Split(s, ".")
	p := make(Path, len(segs))
	for i, seg := range segs {
		if n, err := strconv.Atoi(seg); err == nil && n >= 0 {
			p[i] = Index(n)
			continue
		}
		p[i] = Key(seg)
	}
	return p
}

// At returns the value addressed by p.
func (v Value) At(p Path) (Value, error) {
	cur := v
	for i, s := range p {
		next, ok := cur.step(s)
		if !ok {
			return Value{}, fmt.Errorf("%w: %q not found at %q", ErrInvalidPath, s.String(), p[:i].String())
		}
		cur = next
	}
	return cur, nil
}

// Set returns a copy of v with the value at p replaced by nv. Only the
// containers along p are copied; siblings are shared untouched. Setting a
// missing key on an object appends it.
func (v Value) Set(p Path, nv Value) (Value, error) {
	return v.Update(p, func(Value) (Value, error) { return nv, nil })
}

// Update replaces the value at p with fn(old).
func (v Value) Update(p Path, fn func(Value) (Value, error)) (Value, error) {
	if len(p) == 0 {
		return fn(v)
	}
	head, rest := p[0], p[1:]
	if head.isIndex {
		child, ok := v.Item(head.index)
		if !ok {
			return Value{}, fmt.Errorf("%w: index %d on %s of length %d", ErrInvalidPath, head.index, v.kind, v.Len())
		}
		updated, err := child.Update(rest, fn)
		if err != nil {
			return Value{}, err
		}
		return v.SetItem(head.index, updated)
	}

	if v.kind != Object {
		return Value{}, fmt.Errorf("%w: key %q on %s", ErrInvalidPath, head.key, v.kind)
	}
	child, ok := v.Get(head.key)
	if !ok && len(rest) > 0 {
		return Value{}, fmt.Errorf("%w: key %q not found", ErrInvalidPath, head.key)
	}
	updated, err := child.Update(rest, fn)
	if err != nil {
		return Value{}, err
	}
	return v.With(head.key, updated)
}

func (v Value) step(s Step) (Value, bool) {
	if s.isIndex {
		return v.Item(s.index)
	}
	return v.Get(s.key)
}
