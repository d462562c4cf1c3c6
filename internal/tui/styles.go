package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Panel frame shared by the sidebar, image list and actions menu
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4a5f4a")).
			Padding(0, 1)

	// Panel titles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#e0e0e0"))

	// Accent for the cursor, hotkeys and the active project
	AccentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9a227"))

	// Secondary text
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6b7280"))

	// Status bar while idle
	StatusStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#22c55e"))

	// Status bar while background work runs
	WorkingStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#c9a227"))

	// Selected item marker
	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22c55e"))

	// Error text in the status bar
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ef4444"))
)
