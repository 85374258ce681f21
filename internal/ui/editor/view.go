package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/rivo/uniseg"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/form"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/sections/loader"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/ui/markdown"
	"github.com/almostacms/almostacms/internal/ui/styles"
)

const (
	minSidebarWidth = 24
	maxSidebarWidth = 36
	logPaneHeight   = 8
	diffContext     = 3
)

func sectionZone(i int) string { return fmt.Sprintf("section-%d", i) }
func fieldZone(i int) string   { return fmt.Sprintf("field-%d", i) }

func (m Model) sidebarWidth() int {
	return min(max(m.width*3/10, minSidebarWidth), maxSidebarWidth)
}

func (m Model) formWidth() int {
	return max(m.width-m.sidebarWidth(), 20)
}

// bodyHeight is the height left for the panels after the status bar and the
// optional log pane.
func (m Model) bodyHeight() int {
	h := m.height - 1
	if m.showLogs {
		h -= logPaneHeight
	}
	return max(h, 3)
}

// View implements tea.Model.
func (m Model) View() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewSidebar(), m.viewForm())
	if m.showLogs {
		body = lipgloss.JoinVertical(lipgloss.Left, body, m.viewLogs())
	}
	view := lipgloss.JoinVertical(lipgloss.Left, body, m.viewStatus())

	switch m.overlay {
	case overlayHelp:
		view = styles.Overlay(m.boxed("Keys", m.help.FullHelpView(m.keys.FullHelp())), view, m.width, m.height, styles.Center)
	case overlayInfo:
		view = styles.Overlay(m.boxed("Section", m.viewInfo()), view, m.width, m.height, styles.Center)
	case overlayDiff:
		view = styles.Overlay(m.boxed("Unsaved changes", m.viewDiff()), view, m.width, m.height, styles.Center)
	case overlayConfirm:
		if m.remove != nil {
			view = styles.Overlay(m.boxed("Confirm", styles.WarningStyle.Render(m.remove.prompt())), view, m.width, m.height, styles.Center)
		}
	}
	if m.toaster.Visible() {
		view = m.toaster.Overlay(view, m.width, m.height)
	}
	return zone.Scan(view)
}

func (m Model) viewSidebar() string {
	width := m.sidebarWidth()
	inner := width - 2
	var rows []string
	for i, sec := range m.cfg.Sections {
		indicator := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			indicator = styles.SelectionIndicatorStyle.Render("> ")
			style = styles.SelectedRowStyle
		}
		marker := ""
		if m.session != nil && m.session.ID() == sec.ID {
			state := m.session.State().String()
			marker = " " + styles.StateStyle(state).Render("●")
			if m.session.Dirty() {
				marker += styles.DirtyMarkerStyle.Render("*")
			}
		}
		label := sec.Title()
		if icon := sec.Definition.Icon(); icon != "" {
			label = icon + " " + label
		}
		row := indicator + style.Render(styles.TruncatePlain(label, max(inner-4, 4))) + marker
		rows = append(rows, zone.Mark(sectionZone(i), row))
		if m.cfg.ShowDescriptions {
			if d := sec.Definition.Description(); d != "" {
				rows = append(rows, "  "+styles.DescriptionStyle.Render(styles.TruncatePlain(d, max(inner-2, 1))))
			}
		}
	}
	if len(rows) == 0 {
		rows = append(rows, styles.MutedStyle.Render("No sections"))
	}
	return styles.RenderPanel(rows, "Sections", fmt.Sprint(len(m.cfg.Sections)), width, m.bodyHeight(), m.focus == focusSidebar)
}

func (m Model) viewForm() string {
	width := m.formWidth()
	height := m.bodyHeight()
	focused := m.focus == focusForm

	if m.session == nil {
		return styles.RenderPanel([]string{styles.MutedStyle.Render("Select a section and press enter")}, "Editor", "", width, height, focused)
	}

	s := m.session
	title := s.Label()
	hint := s.State().String()
	if s.Dirty() {
		hint = "modified"
	}

	var rows []string
	switch s.State() {
	case loader.StateLoading:
		rows = append(rows, m.spinner.View()+" Loading "+s.DataFile()+"…")
	case loader.StateLoadError:
		rows = append(rows, styles.ErrorStyle.Render("Could not load "+s.DataFile()))
		rows = append(rows, strings.Split(styles.Wrap(s.Err().Error(), width-4), "\n")...)
		if s.Definition().Example().IsNull() {
			rows = append(rows, "", styles.MutedStyle.Render("ctrl+r to retry"))
		} else {
			rows = append(rows, "", styles.MutedStyle.Render("ctrl+r to retry, s to start from the example"))
		}
	default:
		rows = m.formRows(width - 2)
		if s.State() == loader.StateSaving {
			rows = append([]string{m.spinner.View() + " Saving…"}, rows...)
		}
		if s.State() == loader.StateSaveError && s.Err() != nil {
			rows = append(rows, "", styles.ErrorStyle.Render("Save failed: ")+s.Err().Error())
		}
	}
	if len(m.problems) > 0 {
		rows = append(rows, "", styles.WarningStyle.Render(fmt.Sprintf("%d problem(s):", len(m.problems))))
		for _, p := range m.problems {
			where := p.Path.String()
			if where == "" {
				where = "(root)"
			}
			rows = append(rows, "  "+styles.WarningStyle.Render(where)+" "+p.Message)
		}
	}
	return styles.RenderPanel(m.scroll(rows, height-2), title, hint, width, height, focused)
}

// scroll keeps the form cursor row on screen.
func (m Model) scroll(rows []string, visible int) []string {
	if visible <= 0 || len(rows) <= visible || m.field < visible {
		return rows
	}
	start := min(m.field-visible+1, len(rows)-visible)
	return rows[start:]
}

func (m Model) formRows(inner int) []string {
	fields := m.rows()
	if len(fields) == 0 {
		return []string{styles.MutedStyle.Render("This section has no editable fields")}
	}
	rows := make([]string, 0, len(fields))
	for i, fd := range fields {
		selected := i == m.field && m.focus == focusForm
		rows = append(rows, zone.Mark(fieldZone(i), m.fieldRow(fd, selected, inner)))
		if selected && m.editing && m.editPath.Equal(fd.Path) {
			rows = append(rows, m.editorRows(fd, inner)...)
		}
	}
	return rows
}

func (m Model) fieldRow(fd form.Field, selected bool, inner int) string {
	indicator := "  "
	if selected {
		indicator = styles.SelectionIndicatorStyle.Render("> ")
	}
	indent := strings.Repeat("  ", fd.Depth)
	labelStyle := lipgloss.NewStyle().Foreground(styles.FieldLabelColor)
	if selected {
		labelStyle = labelStyle.Bold(true)
	}

	switch fd.Kind {
	case form.KindGroup, form.KindList:
		arrow := "▾"
		if m.form.IsCollapsed(fd.Path) {
			arrow = "▸"
		}
		color := styles.FieldGroupColor
		suffix := ""
		if fd.Kind == form.KindList {
			color = styles.FieldListColor
			suffix = styles.MutedStyle.Render(fmt.Sprintf(" [%d]", fd.Value.Len()))
		}
		return indicator + indent + lipgloss.NewStyle().Foreground(color).Bold(true).Render(arrow+" "+fd.Label) + suffix
	case form.KindToggle:
		box := "[ ]"
		if fd.Value.Bool() {
			box = "[x]"
		}
		return indicator + indent + lipgloss.NewStyle().Foreground(styles.FieldToggleColor).Render(box) + " " + labelStyle.Render(fd.Label)
	}

	label := labelStyle.Render(fd.Label + ":")
	text := fd.Value.Str()
	if fd.Kind == form.KindNumber {
		text = fd.Value.String()
	}
	text = strings.ReplaceAll(text, "\n", "⏎")
	used := lipgloss.Width(indicator + indent + label + " ")
	valueStyle := lipgloss.NewStyle()
	if fd.Kind == form.KindURL {
		valueStyle = valueStyle.Foreground(styles.FieldURLColor)
	}
	if text == "" {
		return indicator + indent + label + " " + styles.MutedStyle.Render("(empty)")
	}
	return indicator + indent + label + " " + valueStyle.Render(styles.TruncatePlain(text, max(inner-used, 4)))
}

// editorRows renders the open text input below its field.
func (m Model) editorRows(fd form.Field, inner int) []string {
	pad := strings.Repeat("  ", fd.Depth+2)
	var out []string
	if m.multiline {
		for _, line := range strings.Split(m.area.View(), "\n") {
			out = append(out, pad+line)
		}
		out = append(out, pad+styles.MutedStyle.Render(fmt.Sprintf("%d chars · ctrl+d to apply · esc to cancel", uniseg.GraphemeClusterCount(m.area.Value()))))
		return out
	}
	out = append(out, pad+m.input.View())
	hint := fmt.Sprintf("%d chars · enter to apply · esc to cancel", uniseg.GraphemeClusterCount(m.input.Value()))
	out = append(out, pad+styles.MutedStyle.Render(styles.TruncatePlain(hint, max(inner-len(pad), 4))))
	return out
}

func (m Model) viewLogs() string {
	inner := logPaneHeight - 2
	lines := m.logs
	if len(lines) > inner {
		lines = lines[len(lines)-inner:]
	}
	rows := make([]string, len(lines))
	for i, l := range lines {
		rows[i] = styles.MutedStyle.Render(strings.TrimRight(l, "\n"))
	}
	if len(rows) == 0 {
		rows = append(rows, styles.MutedStyle.Render("No log output"))
	}
	return styles.RenderPanel(rows, "Logs", "", m.width, logPaneHeight, false)
}

func (m Model) viewStatus() string {
	return styles.StatusBarStyle.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
}

func (m Model) boxed(title, body string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.BorderFocusColor).
		Padding(0, 1).
		MaxWidth(max(m.width-4, 20))
	return box.Render(styles.TitleStyle.Render(title) + "\n\n" + body)
}

func (m Model) viewInfo() string {
	def := m.currentDefinition()
	if def == nil {
		return ""
	}
	doc := markdown.SectionDoc(def)
	r, err := markdown.New(min(m.width-8, 80), m.cfg.MarkdownStyle)
	if err != nil {
		log.ErrorErr(log.CatUI, "markdown renderer unavailable", err)
		return doc
	}
	out, err := r.Render(doc)
	if err != nil {
		return doc
	}
	return m.clip(strings.TrimRight(out, "\n"))
}

func (m Model) viewDiff() string {
	s := m.session
	if s == nil {
		return ""
	}
	name := site.DataPath(s.DataFile())
	diff := content.Unified(s.Saved(), s.Draft(), name, name+" (unsaved)", diffContext)
	var b strings.Builder
	for i, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(styles.TitleStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(lipgloss.NewStyle().Foreground(styles.DiffAddColor).Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(lipgloss.NewStyle().Foreground(styles.DiffRemoveColor).Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(styles.MutedStyle.Render(line))
		default:
			b.WriteString(line)
		}
	}
	return m.clip(b.String())
}

// clip keeps overlay bodies inside the terminal.
func (m Model) clip(s string) string {
	lines := strings.Split(s, "\n")
	limit := max(m.height-8, 3)
	if len(lines) <= limit {
		return s
	}
	return strings.Join(append(lines[:limit], styles.MutedStyle.Render(styles.Ellipsis)), "\n")
}
