package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/mathlab/internal/mastery"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)
)

// Answer feedback
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Reward = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Status colors
var (
	Locked = lipgloss.NewStyle().
		Foreground(TextDim)

	Available = lipgloss.NewStyle().
			Foreground(Text)

	InProgress = lipgloss.NewStyle().
			Foreground(Secondary)

	Mastered = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)
)

// Components
var (
	ProgressFilled = lipgloss.NewStyle().
			Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
			Background(Border)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// ForStatus returns the style a knowledge point is rendered with.
func ForStatus(s mastery.Status) lipgloss.Style {
	switch s {
	case mastery.StatusAvailable:
		return Available
	case mastery.StatusInProgress:
		return InProgress
	case mastery.StatusMastered:
		return Mastered
	default:
		return Locked
	}
}

// StatusBadge renders "<icon> <label>" in the status color.
func StatusBadge(s mastery.Status) string {
	return ForStatus(s).Render(s.Icon() + " " + s.Label())
}
