package form

import (
	"fmt"

	"github.com/almostacms/almostacms/internal/content"
)

// Fields returns the field tree for the current document.
//
// An object root yields one field per non-null member. An array root yields a
// single list field labelled "Items"; any other root yields a single field
// labelled "Value".
func (f *Form) Fields() []Field {
	switch f.value.Kind() {
	case content.Object:
		return f.objectFields(f.value, content.Root, 0)
	case content.Array:
		return []Field{f.listField("items", f.value, content.Root, 0)}
	case content.Null:
		return nil
	default:
		return []Field{{
			Label: "Value",
			Path:  content.Root,
			Kind:  InferKind("", f.value),
			Value: f.value,
			Index: -1,
		}}
	}
}

func (f *Form) objectFields(obj content.Value, at content.Path, depth int) []Field {
	members := obj.Members()
	fields := make([]Field, 0, len(members))
	for _, m := range members {
		if m.Value.IsNull() {
			continue
		}
		p := at.Child(content.Key(m.Key))
		switch m.Value.Kind() {
		case content.Array:
			fields = append(fields, f.listField(m.Key, m.Value, p, depth))
		case content.Object:
			fields = append(fields, Field{
				Key:       m.Key,
				Label:     Label(m.Key),
				Path:      p,
				Kind:      KindGroup,
				Value:     m.Value,
				Children:  f.objectFields(m.Value, p, depth+1),
				Collapsed: f.IsCollapsed(p),
				Index:     -1,
				Depth:     depth,
			})
		default:
			fields = append(fields, Field{
				Key:   m.Key,
				Label: Label(m.Key),
				Path:  p,
				Kind:  InferKind(m.Key, m.Value),
				Value: m.Value,
				Index: -1,
				Depth: depth,
			})
		}
	}
	return fields
}

func (f *Form) listField(key string, arr content.Value, at content.Path, depth int) Field {
	label := Label(key)
	item := singular(label)
	field := Field{
		Key:       key,
		Label:     label,
		Path:      at,
		Kind:      KindList,
		Value:     arr,
		Collapsed: f.IsCollapsed(at),
		Index:     -1,
		ItemLabel: item,
		Depth:     depth,
	}

	for i, it := range arr.Items() {
		if it.IsNull() {
			continue
		}
		p := at.Child(content.Index(i))
		child := Field{
			Label: fmt.Sprintf("%s #%d", item, i+1),
			Path:  p,
			Value: it,
			Index: i,
			Depth: depth + 1,
		}
		switch it.Kind() {
		case content.Object:
			child.Kind = KindGroup
			child.Children = f.objectFields(it, p, depth+2)
			child.Collapsed = f.IsCollapsed(p)
		case content.Array:
			nested := f.listField(key, it, p, depth+1)
			nested.Label = child.Label
			nested.Index = i
			child = nested
		default:
			// Primitive items take their control from the list's key.
			child.Kind = InferKind(key, it)
		}
		field.Children = append(field.Children, child)
	}
	return field
}

// Flatten walks fields depth-first in display order, skipping the children
// of collapsed groups and lists. UIs use it for cursor navigation.
func Flatten(fields []Field) []Field {
	var out []Field
	var walk func([]Field)
	walk = func(fs []Field) {
		for _, fd := range fs {
			out = append(out, fd)
			if !fd.Collapsed {
				walk(fd.Children)
			}
		}
	}
	walk(fields)
	return out
}
