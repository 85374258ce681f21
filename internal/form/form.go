// Package form renders an arbitrary JSON document as a tree of editable
// fields and applies field-level edits back to it.
//
// No schema is needed: each field's control is inferred from its key name and
// value type (see InferKind), labels are derived from keys (see Label), and
// arrays get add/remove/move operations. Every successful mutation produces a
// new top-level document and passes it to the ChangeFunc.
//
//	f := form.Render(doc, func(v content.Value) { draft = v })
//	_ = f.SetText(content.P("cta", "url"), "/signup")
//	_ = f.Move(content.P("links"), 0, form.Down)
package form

import (
	"errors"
	"fmt"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/log"
)

// Direction selects the neighbor Move swaps with.
type Direction int

const (
	Up Direction = iota
	Down
)

func (d Direction) String() string {
	if d == Up {
		return "up"
	}
	return "down"
}

var (
	// ErrNotEditable is returned when an edit targets a group, list, or a
	// skipped null value.
	ErrNotEditable = errors.New("field is not editable")
	// ErrNotList is returned when an array operation targets a non-array.
	ErrNotList = errors.New("field is not a list")
)

// ChangeFunc receives the whole document after each successful mutation.
type ChangeFunc func(content.Value)

// Field describes one rendered control.
type Field struct {
	Key       string       // object key; empty for list items
	Label     string       // display label
	Path      content.Path // location in the document
	Kind      Kind
	Value     content.Value
	Children  []Field // group members or list items
	Collapsed bool    // groups and lists only
	Index     int     // position within the parent list, -1 otherwise
	ItemLabel string  // list fields: singular item label, e.g. "Link"
	Depth     int
}

// IsItem reports whether the field is an element of a list.
func (f Field) IsItem() bool { return f.Index >= 0 }

// Form is the editable view over one document.
type Form struct {
	value     content.Value
	onChange  ChangeFunc
	collapsed map[string]bool
}

// Render builds a form over value. onChange may be nil.
func Render(value content.Value, onChange ChangeFunc) *Form {
	return &Form{
		value:     value,
		onChange:  onChange,
		collapsed: make(map[string]bool),
	}
}

// Value returns the current document.
func (f *Form) Value() content.Value { return f.value }

// Reset swaps in a new document without notifying onChange. Collapse state
// is kept, matching a reload of the same section.
func (f *Form) Reset(v content.Value) { f.value = v }

// IsCollapsed reports whether the group or list at p is folded.
func (f *Form) IsCollapsed(p content.Path) bool { return f.collapsed[p.String()] }

// ToggleCollapse folds or unfolds the group or list at p. Collapse state is
// view state: it never touches the document and never calls onChange.
func (f *Form) ToggleCollapse(p content.Path) {
	key := p.String()
	if f.collapsed[key] {
		delete(f.collapsed, key)
		return
	}
	f.collapsed[key] = true
}

// Field returns the field at p.
func (f *Form) Field(p content.Path) (Field, bool) {
	var find func(fields []Field) (Field, bool)
	find = func(fields []Field) (Field, bool) {
		for _, fd := range fields {
			if fd.Path.Equal(p) {
				return fd, true
			}
			if p.HasPrefix(fd.Path) {
				return find(fd.Children)
			}
		}
		return Field{}, false
	}
	return find(f.Fields())
}

// SetText writes raw input to the primitive field at p. Number fields parse
// the input (empty means 0) and reject anything that is not a finite number
// without touching the document. Other text kinds store the string as typed.
func (f *Form) SetText(p content.Path, raw string) error {
	fd, err := f.editable(p)
	if err != nil {
		return err
	}

	var next content.Value
	switch fd.Kind {
	case KindNumber:
		next, err = content.ParseNumber(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", fd.Label, err)
		}
	case KindToggle:
		return fmt.Errorf("%w: %s is a toggle", ErrNotEditable, fd.Label)
	default:
		next = content.StringValue(raw)
	}
	return f.replace(p, next)
}

// SetBool writes b to the toggle at p.
func (f *Form) SetBool(p content.Path, b bool) error {
	fd, err := f.editable(p)
	if err != nil {
		return err
	}
	if fd.Kind != KindToggle {
		return fmt.Errorf("%w: %s is not a toggle", ErrNotEditable, fd.Label)
	}
	return f.replace(p, content.BoolValue(b))
}

// Toggle flips the boolean at p.
func (f *Form) Toggle(p content.Path) error {
	fd, err := f.editable(p)
	if err != nil {
		return err
	}
	return f.SetBool(p, !fd.Value.Bool())
}

// Add appends a deep copy of the list's first element, or an empty object
// when the list is empty.
func (f *Form) Add(p content.Path) error {
	list, err := f.list(p)
	if err != nil {
		return err
	}
	template := content.ObjectValue()
	if first, ok := list.Item(0); ok {
		template = first.Clone()
	}
	next, err := list.Append(template)
	if err != nil {
		return err
	}
	log.Debug(log.CatForm, "list item added", "path", p.String(), "len", next.Len())
	return f.replace(p, next)
}

// Remove deletes element i of the list at p.
func (f *Form) Remove(p content.Path, i int) error {
	list, err := f.list(p)
	if err != nil {
		return err
	}
	next, err := list.RemoveItem(i)
	if err != nil {
		return err
	}
	log.Debug(log.CatForm, "list item removed", "path", p.String(), "index", i)
	return f.replace(p, next)
}

// Move swaps element i of the list at p with its neighbor. Moving the first
// element up or the last element down does nothing and is not an error.
func (f *Form) Move(p content.Path, i int, dir Direction) error {
	list, err := f.list(p)
	if err != nil {
		return err
	}
	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if i < 0 || i >= list.Len() || j < 0 || j >= list.Len() {
		return nil
	}
	next, err := list.SwapItems(i, j)
	if err != nil {
		return err
	}
	return f.replace(p, next)
}

func (f *Form) editable(p content.Path) (Field, error) {
	fd, ok := f.Field(p)
	if !ok {
		return Field{}, fmt.Errorf("%w: %s", content.ErrInvalidPath, p)
	}
	if fd.Kind == KindGroup || fd.Kind == KindList {
		return Field{}, fmt.Errorf("%w: %s is a %s", ErrNotEditable, p, fd.Kind)
	}
	return fd, nil
}

func (f *Form) list(p content.Path) (content.Value, error) {
	v, err := f.value.At(p)
	if err != nil {
		return content.Value{}, err
	}
	if v.Kind() != content.Array {
		return content.Value{}, fmt.Errorf("%w: %s is %s", ErrNotList, p, v.Kind())
	}
	return v, nil
}

func (f *Form) replace(p content.Path, v content.Value) error {
	next, err := f.value.Set(p, v)
	if err != nil {
		return err
	}
	f.value = next
	if f.onChange != nil {
		f.onChange(next)
	}
	return nil
}
