package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/mathlab/internal/ui/theme"
)

// ProgressBar displays a horizontal mastery bar.
type ProgressBar struct {
	Label       string
	Percent     float64 // 0..1
	ShowPercent bool
	Width       int
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// Cells returns the filled and empty cell counts for the bar area.
func (p ProgressBar) Cells() (filled, empty int) {
	barWidth := p.Width - lipgloss.Width(p.label())
	if p.ShowPercent {
		barWidth -= 6 // "  100%"
	}
	barWidth = max(barWidth, 4)

	filled = min(max(int(float64(barWidth)*p.Percent), 0), barWidth)
	return filled, barWidth - filled
}

func (p ProgressBar) label() string {
	if p.Label == "" {
		return ""
	}
	return theme.Body.Render(p.Label) + "  "
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	filled, empty := p.Cells()

	var b strings.Builder
	b.WriteString(p.label())
	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", empty)))
	if p.ShowPercent {
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("  %d%%", int(p.Percent*100))))
	}
	return b.String()
}
