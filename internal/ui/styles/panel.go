package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const (
	borderTopLeft     = "╭"
	borderTopRight    = "╮"
	borderBottomLeft  = "╰"
	borderBottomRight = "╯"
	borderHorizontal  = "─"
	borderVertical    = "│"
)

// RenderPanel draws a rounded box of the given outer size with the title set
// into the top border: ╭─ Title (hint) ───╮. Rows beyond the inner height
// are dropped and short rows are padded, so panels always tile exactly.
func RenderPanel(rows []string, title, hint string, width, height int, focused bool) string {
	var borderColor lipgloss.TerminalColor = BorderDefaultColor
	if focused {
		borderColor = BorderFocusColor
	}
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(borderColor)

	innerWidth := max(width-2, 1)
	innerHeight := max(height-2, 0)

	var top strings.Builder
	top.WriteString(borderStyle.Render(borderTopLeft))
	used := 0
	if title != "" {
		label := titleStyle.Render(Truncate(title, max(innerWidth-4, 1)))
		if hint != "" && ansi.StringWidth(title)+ansi.StringWidth(hint)+6 <= innerWidth {
			label += " " + MutedStyle.Render("("+hint+")")
		}
		top.WriteString(borderStyle.Render(borderHorizontal + " "))
		top.WriteString(label)
		top.WriteString(" ")
		used = ansi.StringWidth(label) + 3
	}
	top.WriteString(borderStyle.Render(strings.Repeat(borderHorizontal, max(innerWidth-used, 0)) + borderTopRight))

	lines := make([]string, 0, height)
	lines = append(lines, top.String())
	for i := 0; i < innerHeight; i++ {
		row := ""
		if i < len(rows) {
			row = Truncate(rows[i], innerWidth)
		}
		pad := max(innerWidth-ansi.StringWidth(row), 0)
		lines = append(lines, borderStyle.Render(borderVertical)+row+strings.Repeat(" ", pad)+borderStyle.Render(borderVertical))
	}
	lines = append(lines, borderStyle.Render(borderBottomLeft+strings.Repeat(borderHorizontal, innerWidth)+borderBottomRight))
	return strings.Join(lines, "\n")
}
