// Package catalog loads section definitions from YAML: the built-in catalog
// embedded in the binary and optional user catalogs on disk.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/sections/editors"
)

//go:embed sections.yaml
var builtInYAML []byte

// ErrUnknownEditor is returned for an editor name with no bespoke editor.
var ErrUnknownEditor = errors.New("unknown editor")

// File is the root structure of a catalog file.
type File struct {
	Sections []SectionDef `yaml:"sections"`
}

// SectionDef is one section entry in a catalog file.
type SectionDef struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Icon        string        `yaml:"icon"`
	Category    string        `yaml:"category"`
	Description string        `yaml:"description"`
	Editor      string        `yaml:"editor"`  // bespoke editor name, empty for generic
	Example     content.Value `yaml:"example"` // sample document
}

// LoadBuiltIn parses the embedded catalog.
func LoadBuiltIn() ([]*sections.Definition, error) {
	defs, err := Parse(builtInYAML, sections.SourceBuiltIn)
	if err != nil {
		return nil, fmt.Errorf("built-in catalog: %w", err)
	}
	return defs, nil
}

// Parse decodes one catalog file.
func Parse(data []byte, source sections.Source) ([]*sections.Definition, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	defs := make([]*sections.Definition, 0, len(file.Sections))
	for i, sd := range file.Sections {
		def, err := buildDefinition(sd, source)
		if err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, sd.ID, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func buildDefinition(sd SectionDef, source sections.Source) (*sections.Definition, error) {
	b := sections.NewDefinition(sd.ID).
		Name(sd.Name).
		Icon(sd.Icon).
		Category(sections.Category(sd.Category)).
		Description(strings.TrimSpace(sd.Description)).
		Example(sd.Example).
		Source(source)

	if name := strings.TrimSpace(sd.Editor); name != "" && name != editors.GenericName {
		loader, ok := editors.Loader(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEditor, name)
		}
		b = b.Editor(loader)
	}
	return b.Build()
}
