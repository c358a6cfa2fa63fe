package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#E11D48")
	muted  = lipgloss.Color("#6B7280")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accent)
	subtitleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(muted)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	selectedStyle = lipgloss.NewStyle().Foreground(accent).Bold(true)
	ownStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F472B6"))
	peerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E5E7EB"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#F59E0B")).
			Padding(1, 3)
)
