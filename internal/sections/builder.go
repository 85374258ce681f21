package sections

import (
	"errors"
	"fmt"

	"github.com/almostacms/almostacms/internal/content"
)

// Builder errors
var (
	ErrEmptyID         = errors.New("section id cannot be empty")
	ErrEmptyName       = errors.New("section name cannot be empty")
	ErrEmptyCategory   = errors.New("section category cannot be empty")
	ErrUnknownCategory = errors.New("unknown section category")
)

// Builder provides a fluent API for creating definitions
type Builder struct {
	id          string
	name        string
	icon        string
	category    Category
	description string
	example     content.Value
	loader      EditorLoader
	source      Source
}

// NewDefinition starts a definition for the given section id.
func NewDefinition(id string) *Builder {
	return &Builder{id: id}
}

func (b *Builder) Name(n string) *Builder {
	b.name = n
	return b
}

func (b *Builder) Icon(i string) *Builder {
	b.icon = i
	return b
}

func (b *Builder) Category(c Category) *Builder {
	b.category = c
	return b
}

func (b *Builder) Description(d string) *Builder {
	b.description = d
	return b
}

// Example sets the sample document. It is cloned on Build.
func (b *Builder) Example(v content.Value) *Builder {
	b.example = v
	return b
}

// Editor sets the deferred editor factory. A nil loader means the section
// uses the generic form editor.
func (b *Builder) Editor(loader EditorLoader) *Builder {
	b.loader = loader
	return b
}

// Source records where the definition came from. Defaults to SourceBuiltIn.
func (b *Builder) Source(s Source) *Builder {
	b.source = s
	return b
}

// Build creates the definition, validating required fields
func (b *Builder) Build() (*Definition, error) {
	if b.id == "" {
		return nil, ErrEmptyID
	}
	if b.name == "" {
		return nil, fmt.Errorf("%s: %w", b.id, ErrEmptyName)
	}
	if b.category == "" {
		return nil, fmt.Errorf("%s: %w", b.id, ErrEmptyCategory)
	}
	if !b.category.Valid() {
		return nil, fmt.Errorf("%s: %w: %q", b.id, ErrUnknownCategory, b.category)
	}

	return &Definition{
		id:          b.id,
		name:        b.name,
		icon:        b.icon,
		category:    b.category,
		description: b.description,
		example:     b.example.Clone(),
		loader:      b.loader,
		source:      b.source,
	}, nil
}
