package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	m, warnings, err := ParseManifest([]byte(`{
		"generator": "almostacms",
		"version": "1.0",
		"sections": [
			{"id": "hero", "dataFile": "hero.json", "order": 1, "required": true},
			{"id": "faq", "order": 2.9, "hidden": true, "label": "Questions"},
			{"dataFile": "orphan.json"},
			"junk"
		]
	}`))
	require.NoError(t, err)
	assert.Equal(t, "almostacms", m.Generator)
	assert.Equal(t, "1.0", m.Version)
	require.Len(t, m.Sections, 2)

	assert.Equal(t, SectionConfig{ID: "hero", DataFile: "hero.json", Order: 1, Required: true}, m.Sections[0])
	assert.Equal(t, SectionConfig{ID: "faq", DataFile: "faq.json", Order: 2, Hidden: true, Label: "Questions"}, m.Sections[1])
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0].Error(), "sections[2]: missing id")
}

func TestParseManifest_NoSections(t *testing.T) {
	for _, body := range []string{`{}`, `{"sections":{"hero":{}}}`} {
		m, warnings, err := ParseManifest([]byte(body))
		require.NoError(t, err)
		assert.Empty(t, m.Sections)
		require.Len(t, warnings, 1)
		assert.ErrorIs(t, warnings[0], ErrNoSections)
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	_, _, err := ParseManifest([]byte(`{"sections": [`))
	require.Error(t, err)
	_, _, err = ParseManifest([]byte(`[]`))
	require.Error(t, err)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, "/data/hero.json", DataPath("hero.json"))
	assert.Equal(t, "/.almostacms.json", Clean("/admin/../.almostacms.json"))
	assert.Equal(t, "/etc/passwd", Clean("../../etc/passwd"))
	assert.Equal(t, "Update hero via AlmostaCMS", CommitMessage("hero.json"))
}
