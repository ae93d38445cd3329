package theme

import (
	"charm.land/lipgloss/v2"
)

// Color palette: dark overlay, gold timers like the in-game bar
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Gold      = lipgloss.Color("#FFD700") // Timer Gold
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#555555") // Sprite Border
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Layout
var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BgCard).
		Padding(0, 1)
)

// Info bar slots
var (
	Slot = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Width(8).
		Align(lipgloss.Center).
		MarginRight(1)

	SlotFresh = Slot.
			BorderForeground(Accent)

	Sprite = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)

	Value = lipgloss.NewStyle().
		Foreground(Text)

	Timer = lipgloss.NewStyle().
		Foreground(Gold)

	TimerUnknown = lipgloss.NewStyle().
			Foreground(TextDim).
			Italic(true)
)

// Event log
var (
	LogTime = lipgloss.NewStyle().
		Foreground(TextDim)

	LogHost = lipgloss.NewStyle().
		Foreground(Secondary)

	LogBoost = lipgloss.NewStyle().
			Foreground(Accent)

	LogWarn = lipgloss.NewStyle().
		Foreground(Error)
)
