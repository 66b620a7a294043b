package ui

import "github.com/charmbracelet/lipgloss"

// Adaptive colors tuned for both light and dark terminals.
var (
	ColorText    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted   = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorInfo    = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(ColorSubtext).
			Background(ColorBgSubtle).
			Padding(0, 1)

	warningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorDanger).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(ColorInfo)

	selectedCountStyle = lipgloss.NewStyle().
				Foreground(ColorSuccess).
				Bold(true)

	filterBadgeStyle = lipgloss.NewStyle().
				Foreground(ColorText).
				Background(ColorBgHighlight).
				Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
)
