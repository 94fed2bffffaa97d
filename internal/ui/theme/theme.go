package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette for the terminal chat.
var (
	Primary   = lipgloss.Color("#FACC15") // Gold
	Secondary = lipgloss.Color("#38BDF8") // Sky
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Bold = lipgloss.NewStyle().
		Bold(true)

	Italic = lipgloss.NewStyle().
		Italic(true)

	Code = lipgloss.NewStyle().
		Foreground(Secondary)
)

// Chat transcript
var (
	BotLabel = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	UserLabel = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// Layout
var (
	Input = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)
