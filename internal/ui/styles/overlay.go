package styles

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Placement selects where Overlay puts the foreground.
type Placement int

const (
	Center Placement = iota
	Bottom
)

// Overlay draws fg on top of bg inside a width x height viewport without
// clearing what is underneath. Styling on both layers survives because the
// background is cut with ANSI-aware truncation.
func Overlay(fg, bg string, width, height int, at Placement) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < height {
		bgLines = append(bgLines, strings.Repeat(" ", width))
	}

	fgWidth := 0
	for _, l := range fgLines {
		fgWidth = max(fgWidth, ansi.StringWidth(l))
	}
	x := max((width-fgWidth)/2, 0)
	y := max((height-len(fgLines))/2, 0)
	if at == Bottom {
		y = max(height-len(fgLines)-1, 0)
	}

	for i, line := range fgLines {
		row := y + i
		if row >= len(bgLines) {
			break
		}
		bgLine := bgLines[row]
		left := ansi.Truncate(bgLine, x, "")
		if w := ansi.StringWidth(left); w < x {
			left += strings.Repeat(" ", x-w)
		}
		right := ""
		if end := x + ansi.StringWidth(line); end < ansi.StringWidth(bgLine) {
			right = ansi.TruncateLeft(bgLine, end, "")
		}
		bgLines[row] = left + line + right
	}
	return strings.Join(bgLines, "\n")
}
