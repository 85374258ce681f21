// Package markdown renders section documentation for the terminal.
package markdown

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/almostacms/almostacms/internal/sections"
)

// noMarginStyle removes document margins so output lines up with panels.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// Renderer wraps glamour with a fixed style and wrap width.
type Renderer struct {
	renderer *glamour.TermRenderer
	width    int
}

// New creates a renderer. style is "dark", "light" or "notty"; empty means
// "dark". A named style avoids the terminal background query that
// WithAutoStyle performs, whose reply can leak into Bubble Tea's input.
func New(width int, style string) (*Renderer, error) {
	if style == "" {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	return &Renderer{renderer: r, width: width}, nil
}

// Width returns the configured word wrap width.
func (r *Renderer) Width() int { return r.width }

// Render transforms markdown to styled terminal output.
func (r *Renderer) Render(md string) (string, error) {
	return r.renderer.Render(md)
}

// SectionDoc describes a section definition as markdown: heading, category,
// editor kind, description and the example document.
func SectionDoc(def *sections.Definition) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n\n", def.Icon(), def.Name())

	category := def.Category().String()
	if info, ok := def.Category().Info(); ok {
		category = info.Name
	}
	editor := "generic form"
	if def.HasBespokeEditor() {
		editor = "bespoke"
	}
	fmt.Fprintf(&b, "- **ID:** `%s`\n", def.ID())
	fmt.Fprintf(&b, "- **Data file:** `data/%s`\n", def.DataFile())
	fmt.Fprintf(&b, "- **Category:** %s\n", category)
	fmt.Fprintf(&b, "- **Editor:** %s\n", editor)
	fmt.Fprintf(&b, "- **Source:** %s\n\n", def.Source())

	if d := strings.TrimSpace(def.Description()); d != "" {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	if ex := def.Example(); !ex.IsNull() {
		b.WriteString("## Example\n\n```json\n")
		b.Write(ex.Pretty())
		b.WriteString("\n```\n")
	}
	return b.String()
}
