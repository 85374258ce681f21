// Package editors provides the section editors: the generic form editor used
// by any section without one of its own, and the bespoke editors, which keep
// the generic form and add section-specific validation.
package editors

import (
	"context"
	"sort"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
	"github.com/almostacms/almostacms/internal/sections"
)

// GenericName is the editor name used when a section has no bespoke editor.
const GenericName = "generic"

// Generic renders any document and never reports problems.
type Generic struct{}

var _ sections.Editor = Generic{}

func (Generic) Name() string { return GenericName }

func (Generic) Form(doc content.Value, onChange form.ChangeFunc) *form.Form {
	return form.Render(doc, onChange)
}

func (Generic) Validate(content.Value) []sections.Problem { return nil }

// Checked is a bespoke editor: the generic form plus a fixed set of checks.
type Checked struct {
	name   string
	checks []Check
}

var _ sections.Editor = (*Checked)(nil)

// New builds a bespoke editor named name.
func New(name string, checks ...Check) *Checked {
	return &Checked{name: name, checks: checks}
}

func (c *Checked) Name() string { return c.name }

func (c *Checked) Form(doc content.Value, onChange form.ChangeFunc) *form.Form {
	return form.Render(doc, onChange)
}

// Validate runs every check and returns the problems in document order.
func (c *Checked) Validate(doc content.Value) []sections.Problem {
	var problems []sections.Problem
	for _, check := range c.checks {
		problems = append(problems, check(doc)...)
	}
	sort.SliceStable(problems, func(i, j int) bool {
		return problems[i].Path.String() < problems[j].Path.String()
	})
	return problems
}

// bespoke lists the sections with their own editor. Sections not listed here
// (howItWorks, showcase, openSource, support, faq) use Generic.
var bespoke = map[string]func() *Checked{
	"profile": func() *Checked {
		return New("profile", Required("name"), URLs())
	},
	"links": func() *Checked {
		return New("links", EachItem("links", Required("title", "url")), URLs())
	},
	"social": func() *Checked {
		return New("social", EachItem("platforms", Required("platform", "url")), URLs())
	},
	"hero": func() *Checked {
		return New("hero", Required("headline"), URLs())
	},
	"features": func() *Checked {
		return New("features", EachItem("features", Required("title")))
	},
	"cta": func() *Checked {
		return New("cta", Required("headline"), URLs())
	},
	"theme": func() *Checked {
		return New("theme", HexColors("primaryColor", "backgroundColor", "textColor"))
	},
	"footer": func() *Checked {
		return New("footer", EachItem("links", Required("text", "url")), URLs())
	},
	"navbar": func() *Checked {
		return New("navbar", EachItem("links", Required("text", "url")), URLs())
	},
	"settings": func() *Checked {
		return New("settings", Required("siteName"), Language("language"))
	},
}

// Names returns the bespoke editor names in sorted order.
func Names() []string {
	names := make([]string, 0, len(bespoke))
	for n := range bespoke {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Loader returns the deferred factory for the bespoke editor called name.
// ok is false for unknown names and for GenericName; callers register those
// sections without a loader so the registry falls back to Generic.
func Loader(name string) (sections.EditorLoader, bool) {
	build, ok := bespoke[name]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context) (sections.Editor, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return build(), nil
	}, true
}
