package site

import (
	"errors"
	"fmt"
	"math"

	"github.com/almostacms/almostacms/internal/content"
)

// ErrNoSections is the warning reported for a manifest with no sections
// array. It is not fatal.
var ErrNoSections = errors.New("no sections array found in configuration")

// SectionConfig is one entry of the manifest's sections array.
type SectionConfig struct {
	ID       string
	DataFile string
	Order    int
	Required bool
	Hidden   bool
	Label    string
}

// Manifest is a parsed .almostacms.json.
type Manifest struct {
	Generator string
	Version   string
	Sections  []SectionConfig
	// Raw is the whole manifest, for fields this package does not model.
	Raw content.Value
}

// ParseManifest decodes a manifest. A missing or non-array sections field
// yields an empty section list and ErrNoSections as a warning.
func ParseManifest(data []byte) (Manifest, []error, error) {
	raw, err := content.Parse(data)
	if err != nil {
		return Manifest{}, nil, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}
	if raw.Kind() != content.Object {
		return Manifest{}, nil, fmt.Errorf("parse %s: expected an object, got %s", ManifestFile, raw.Kind())
	}

	m := Manifest{Raw: raw}
	if v, ok := raw.Get("generator"); ok {
		m.Generator = v.Str()
	}
	if v, ok := raw.Get("version"); ok {
		m.Version = v.Str()
		if v.Kind() == content.Number {
			m.Version = v.Literal()
		}
	}

	list, ok := raw.Get("sections")
	if !ok || list.Kind() != content.Array {
		return m, []error{ErrNoSections}, nil
	}

	var warnings []error
	for i, item := range list.Items() {
		sc, err := sectionConfig(item)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("sections[%d]: %w", i, err))
			continue
		}
		m.Sections = append(m.Sections, sc)
	}
	return m, warnings, nil
}

func sectionConfig(v content.Value) (SectionConfig, error) {
	if v.Kind() != content.Object {
		return SectionConfig{}, fmt.Errorf("expected an object, got %s", v.Kind())
	}
	str := func(key string) string {
		f, _ := v.Get(key)
		return f.Str()
	}
	flag := func(key string) bool {
		f, _ := v.Get(key)
		return f.Bool()
	}

	sc := SectionConfig{
		ID:       str("id"),
		DataFile: str("dataFile"),
		Required: flag("required"),
		Hidden:   flag("hidden"),
		Label:    str("label"),
	}
	if sc.ID == "" {
		return SectionConfig{}, errors.New("missing id")
	}
	if sc.DataFile == "" {
		sc.DataFile = sc.ID + ".json"
	}
	if o, ok := v.Get("order"); ok && o.Kind() == content.Number {
		f := o.Float()
		if f > math.MaxInt32 || f < math.MinInt32 {
			return SectionConfig{}, fmt.Errorf("order %s out of range", o.Literal())
		}
		sc.Order = int(f)
	}
	return sc, nil
}
