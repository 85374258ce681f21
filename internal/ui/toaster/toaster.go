// Package toaster provides a notification toast overlay component.
package toaster

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/almostacms/almostacms/internal/ui/styles"
)

// Style determines the visual appearance of the toast.
type Style int

const (
	StyleSuccess Style = iota
	StyleError
	StyleInfo
	StyleWarn
)

// DefaultDuration is how long a toast stays up unless told otherwise.
const DefaultDuration = 3 * time.Second

// Model holds the toaster state.
type Model struct {
	message string
	style   Style
	visible bool
	seq     int
}

// New creates a new toaster model.
func New() Model {
	return Model{}
}

// Show displays a toast and schedules its dismissal after d. A later Show
// supersedes the pending dismissal of an earlier one.
func (m Model) Show(message string, style Style, d time.Duration) (Model, tea.Cmd) {
	m.seq++
	m.message = message
	m.style = style
	m.visible = true
	seq := m.seq
	return m, tea.Tick(d, func(time.Time) tea.Msg { return DismissMsg{seq: seq} })
}

// Hide dismisses the toast.
func (m Model) Hide() Model {
	m.visible = false
	m.message = ""
	return m
}

// Visible returns whether the toast is currently showing.
func (m Model) Visible() bool { return m.visible }

// Message returns the current toast text.
func (m Model) Message() string { return m.message }

// Update hides the toast when its own DismissMsg arrives.
func (m Model) Update(msg tea.Msg) Model {
	if d, ok := msg.(DismissMsg); ok && d.seq == m.seq {
		return m.Hide()
	}
	return m
}

// View renders the toast box.
func (m Model) View() string {
	if !m.visible || m.message == "" {
		return ""
	}

	style := lipgloss.NewStyle().
		Padding(0, 1).
		Border(lipgloss.RoundedBorder())

	var icon string
	switch m.style {
	case StyleError:
		style = style.BorderForeground(styles.ToastBorderErrorColor)
		icon = "✗ "
	case StyleInfo:
		style = style.BorderForeground(styles.ToastBorderInfoColor)
		icon = "• "
	case StyleWarn:
		style = style.BorderForeground(styles.ToastBorderWarnColor)
		icon = "! "
	default:
		style = style.BorderForeground(styles.ToastBorderSuccessColor)
		icon = "✓ "
	}
	return style.Render(icon + m.message)
}

// Overlay renders the toast near the bottom of a background view.
func (m Model) Overlay(bg string, width, height int) string {
	if !m.visible || m.message == "" {
		return bg
	}
	return styles.Overlay(m.View(), bg, width, height, styles.Bottom)
}

// DismissMsg signals that a toast should be dismissed.
type DismissMsg struct{ seq int }
