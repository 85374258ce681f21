// Package styles contains Lip Gloss style definitions for the editor.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Text hierarchy
	TextPrimaryColor     = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	TextSecondaryColor   = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#BBBBBB"}
	TextMutedColor       = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#696969"} // Hints, help text, footers
	TextDescriptionColor = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#999999"}

	BorderDefaultColor = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#696969"}
	BorderFocusColor   = lipgloss.AdaptiveColor{Light: "#3B82F6", Dark: "#54A0FF"}

	StatusSuccessColor = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	StatusWarningColor = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FECA57"}
	StatusErrorColor   = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#FF8787"}
	StatusInfoColor    = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#54A0FF"}

	SelectionIndicatorColor = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#FFFFFF"}
	SpinnerColor            = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#FFF"}

	// Field kinds get a faint accent so long forms scan quickly.
	FieldLabelColor  = lipgloss.AdaptiveColor{Light: "#374151", Dark: "#C9C9C9"}
	FieldGroupColor  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#CBA6F7"}
	FieldListColor   = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#94E2D5"}
	FieldToggleColor = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FAB387"}
	FieldURLColor    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#89B4FA"}

	// Diff
	DiffAddColor    = lipgloss.AdaptiveColor{Light: "#15803D", Dark: "#73F59F"}
	DiffRemoveColor = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#FF8787"}

	SelectionIndicatorStyle = lipgloss.NewStyle().Bold(true).Foreground(SelectionIndicatorColor)
	SelectedRowStyle        = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	MutedStyle              = lipgloss.NewStyle().Foreground(TextMutedColor)
	DescriptionStyle        = lipgloss.NewStyle().Foreground(TextDescriptionColor).Italic(true)
	TitleStyle              = lipgloss.NewStyle().Bold(true).Foreground(TextPrimaryColor)
	CategoryStyle           = lipgloss.NewStyle().Bold(true).Foreground(TextSecondaryColor)

	DirtyMarkerStyle = lipgloss.NewStyle().Foreground(StatusWarningColor).Bold(true)
	ErrorStyle       = lipgloss.NewStyle().Foreground(StatusErrorColor).Bold(true)
	WarningStyle     = lipgloss.NewStyle().Foreground(StatusWarningColor)
	SuccessStyle     = lipgloss.NewStyle().Foreground(StatusSuccessColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextSecondaryColor).
			Padding(0, 1)

	// Toast borders
	ToastBorderSuccessColor = StatusSuccessColor
	ToastBorderErrorColor   = StatusErrorColor
	ToastBorderInfoColor    = StatusInfoColor
	ToastBorderWarnColor    = StatusWarningColor
)

// StateStyle returns the badge style for a section session state name as
// reported by loader.State.String.
func StateStyle(state string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch state {
	case "ready":
		return base.Foreground(StatusSuccessColor)
	case "loading", "saving":
		return base.Foreground(StatusInfoColor)
	case "load-error", "save-error":
		return base.Foreground(StatusErrorColor)
	default:
		return base.Foreground(TextMutedColor)
	}
}
