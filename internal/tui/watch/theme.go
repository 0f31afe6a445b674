// Package watch implements the live service monitor TUI. It polls the
// /health and /runs endpoints of a running daily-automation instance and
// renders recent pipeline runs.
package watch

import "github.com/charmbracelet/lipgloss"

// Theme centralizes all styling for the watch TUI.
// Even with a single default theme, this keeps all colors in one place
// and makes future theme support trivial.
type Theme struct {
	// Outcome colors
	OutcomeCreated   lipgloss.Style
	OutcomeIgnored   lipgloss.Style
	OutcomeSkipped   lipgloss.Style
	OutcomeDuplicate lipgloss.Style
	OutcomeFailed    lipgloss.Style

	// UI elements
	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style

	// Configuration indicators
	ConfigOK      lipgloss.Style
	ConfigMissing lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		OutcomeCreated:   lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		OutcomeIgnored:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		OutcomeSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
		OutcomeDuplicate: lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),
		OutcomeFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),

		ConfigOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		ConfigMissing: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
	}
}

// outcomeStyle maps a run outcome to its display style.
func (t Theme) outcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "created":
		return t.OutcomeCreated
	case "ignored":
		return t.OutcomeIgnored
	case "skipped_empty":
		return t.OutcomeSkipped
	case "duplicate":
		return t.OutcomeDuplicate
	case "failed":
		return t.OutcomeFailed
	default:
		return t.Dim
	}
}
