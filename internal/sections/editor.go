package sections

import (
	"context"
	"fmt"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
)

// Editor is the editing surface mounted for a section. The generic editor
// renders any document with the form package; bespoke editors start from the
// same form and add their own checks.
type Editor interface {
	// Name identifies the editor in logs and the UI footer.
	Name() string
	// Form renders doc for editing. onChange receives every new document.
	Form(doc content.Value, onChange form.ChangeFunc) *form.Form
	// Validate reports problems that should block a save. A nil result
	// means the document is fine.
	Validate(doc content.Value) []Problem
}

// EditorLoader builds a section's editor on first use.
type EditorLoader func(ctx context.Context) (Editor, error)

// Problem is one validation finding.
type Problem struct {
	Path    content.Path
	Message string
}

func (p Problem) String() string {
	if len(p.Path) == 0 {
		return p.Message
	}
	return fmt.Sprintf("%s: %s", p.Path, p.Message)
}
