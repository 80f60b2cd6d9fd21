package ui

import "github.com/charmbracelet/lipgloss"

var (
	fuchsia   = lipgloss.Color("#EE6FF8")
	mintGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	red       = lipgloss.AdaptiveColor{Light: "#D9473F", Dark: "#F48771"}
	blue      = lipgloss.AdaptiveColor{Light: "#2B6CB0", Dark: "#569CD6"}
	olive     = lipgloss.AdaptiveColor{Light: "#5E7D3A", Dark: "#B5CEA8"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	darkGray  = lipgloss.AdaptiveColor{Light: "#DDDADA", Dark: "#3C3C3C"}

	titleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true).
			Padding(0, 1)

	labelStyle        = lipgloss.NewStyle().Foreground(gray)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(fuchsia).Bold(true)
	subtleStyle       = lipgloss.NewStyle().Foreground(gray)
	errorStyle        = lipgloss.NewStyle().Foreground(red)
	errorTitleStyle   = lipgloss.NewStyle().
				Foreground(cream).
				Background(red).
				Padding(0, 1)

	buttonStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(gray).
			Padding(0, 2)
	focusedButtonStyle = buttonStyle.
				Background(fuchsia).
				Bold(true)
	disabledButtonStyle = buttonStyle.
				Foreground(gray).
				Background(darkGray)

	// Log rows
	timestampStyle = lipgloss.NewStyle().Foreground(gray)
	methodStyle    = lipgloss.NewStyle().Foreground(blue).Bold(true)
	statusOKStyle  = lipgloss.NewStyle().Foreground(mintGreen).Bold(true)
	statusErrStyle = lipgloss.NewStyle().Foreground(red).Bold(true)
	durationStyle  = lipgloss.NewStyle().Foreground(olive)
	selectedStyle  = lipgloss.NewStyle().Foreground(fuchsia)

	logHeaderStyle = lipgloss.NewStyle().
			Foreground(gray).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(darkGray)

	playedStyle   = lipgloss.NewStyle().Foreground(fuchsia)
	unplayedStyle = lipgloss.NewStyle().Foreground(darkGray)
)
