package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	Primary   = lipgloss.Color("#4ECDC4")
	OK        = lipgloss.Color("#95E1A3")
	Pending   = lipgloss.Color("#FFE66D")
	ErrorCol  = lipgloss.Color("#FF6B6B")
	TextMuted = lipgloss.Color("#888888")
)

// Styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)

	StateOKStyle = lipgloss.NewStyle().
			Foreground(OK).
			Bold(true)

	StatePendingStyle = lipgloss.NewStyle().
				Foreground(Pending)

	StateErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorCol)

	LabelStyle = lipgloss.NewStyle().
			Foreground(Primary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(TextMuted)
)
