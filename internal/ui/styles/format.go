package styles

import (
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
)

// Ellipsis is appended by Truncate.
const Ellipsis = "…"

// Truncate cuts s to maxWidth terminal cells, ending with an ellipsis when
// anything was dropped. ANSI sequences are kept intact.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if ansi.StringWidth(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, Ellipsis)
}

// TruncatePlain is Truncate for text known to hold no escape sequences.
// It measures East Asian wide characters the same way the terminal does.
func TruncatePlain(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// Wrap word-wraps plain text to width.
func Wrap(s string, width int) string {
	if width < 1 {
		return s
	}
	return wordwrap.String(s, width)
}
