// Package themes holds the visual styles of the workflow form.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	TabActive     lipgloss.Style
	TabInactive   lipgloss.Style
	Selected      lipgloss.Style
	StatusInfo    lipgloss.Style
	StatusError   lipgloss.Style
	StatusSuccess lipgloss.Style
	Title         lipgloss.Style
	Label         lipgloss.Style
	Help          lipgloss.Style
	Normal        lipgloss.Style
	Code          lipgloss.Style
	DiffAdd       lipgloss.Style
	DiffRemove    lipgloss.Style
	DiffHunk      lipgloss.Style
	RoundedBox    lipgloss.Style
	Primary       lipgloss.Color
	Muted         lipgloss.Color
	Border        lipgloss.Color
	Error         lipgloss.Color
	Success       lipgloss.Color
}

// Default is the default theme.
var Default = Theme{
	// Colors
	Primary: lipgloss.Color("#5B8DEF"),
	Success: lipgloss.Color("#4ECDC4"),
	Error:   lipgloss.Color("#FF6B6B"),
	Border:  lipgloss.Color("#404040"),
	Muted:   lipgloss.Color("#737373"),

	// Text styles
	Title: lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		MarginBottom(1),
	Label: lipgloss.NewStyle().
		Bold(true).
		Width(30),
	Help: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#737373")).
		Italic(true),
	Normal: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#fafafa")),
	Code: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#e5e5e5")),
	Selected: lipgloss.NewStyle().
		Background(lipgloss.Color("#5B8DEF")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true),

	// Tabs
	TabActive: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#5B8DEF")).
		Foreground(lipgloss.Color("#fafafa")).
		Bold(true).
		Padding(0, 1),
	TabInactive: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Foreground(lipgloss.Color("#737373")).
		Padding(0, 1),

	// Diff styles
	DiffAdd: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ECDC4")),
	DiffRemove: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")),
	DiffHunk: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#95E1D3")),

	RoundedBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#404040")).
		Padding(0, 1),

	// Status styles
	StatusSuccess: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#4ECDC4")).
		Bold(true),
	StatusError: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6B6B")).
		Bold(true),
	StatusInfo: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#95E1D3")),
}
