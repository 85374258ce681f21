package sections

import "github.com/almostacms/almostacms/internal/content"

// Source indicates where a definition was loaded from.
type Source int

const (
	SourceBuiltIn Source = iota
	SourceUser
)

func (s Source) String() string {
	if s == SourceUser {
		return "user"
	}
	return "built-in"
}

// Definition describes one section type.
type Definition struct {
	id          string
	name        string
	icon        string
	category    Category
	description string
	example     content.Value
	loader      EditorLoader
	source      Source
}

// ID returns the section id, e.g. "hero".
func (d *Definition) ID() string { return d.id }

// Name returns the display name, e.g. "Call to Action".
func (d *Definition) Name() string { return d.name }

// Icon returns the icon glyph (usually one emoji).
func (d *Definition) Icon() string { return d.icon }

func (d *Definition) Category() Category { return d.category }

func (d *Definition) Description() string { return d.description }

// Example returns a sample document for the section. It is Null when the
// definition has none.
func (d *Definition) Example() content.Value { return d.example }

// HasBespokeEditor reports whether the definition brings its own editor
// instead of the generic form.
func (d *Definition) HasBespokeEditor() bool { return d.loader != nil }

func (d *Definition) Source() Source { return d.source }

// DataFile is the conventional data file name for the section: "<id>.json".
func (d *Definition) DataFile() string { return d.id + ".json" }
