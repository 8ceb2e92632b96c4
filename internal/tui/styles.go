package tui

import "github.com/charmbracelet/lipgloss"

// AppName is shown in the header.
const AppName = "ELITE WAITLIST"

// Layout constants
const (
	contentWidth  = 64
	progressWidth = 40
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#D4AF37") // Gold
	AccentColor  = lipgloss.Color("#F5F5F5") // Off-white
	SuccessColor = lipgloss.Color("#43BF6D") // Green
	ErrorColor   = lipgloss.Color("#FF5F56") // Red
	SubtleColor  = lipgloss.Color("#6C6C6C") // Gray
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	CountdownStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	PromptStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true).
			MarginTop(1).
			MarginBottom(1)

	ButtonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(PrimaryColor).
			Padding(0, 2)

	DisabledButtonStyle = lipgloss.NewStyle().
				Foreground(SubtleColor).
				Background(lipgloss.Color("#2A2A2A")).
				Padding(0, 2)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 2).
			Width(contentWidth)
)
