package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathlab/internal/ui/components"
	"github.com/abhisek/mathlab/internal/ui/theme"
)

const progressBarWidth = 30

var progressCmd = &cobra.Command{
	Use:   "progress <student-id>",
	Short: "Show a student's mastery across every topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.Tutor.Progress(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(displayName(p.Name, p.StudentID)))
		summary := fmt.Sprintf("%d/%d mastered  •  %d XP  •  %d coins  •  %d/%d correct",
			p.Mastered, len(p.Topics), p.XP, p.Coins, p.Correct, p.Attempts)
		if p.Rank > 0 {
			summary += fmt.Sprintf("  •  rank #%d", p.Rank)
		}
		fmt.Fprintln(out, theme.Subtitle.Render(summary))
		fmt.Fprintln(out, strings.Repeat("─", 96))

		now := time.Now()
		for _, t := range p.Topics {
			title := t.Title
			if len(title) > 28 {
				title = title[:25] + "..."
			}
			bar := components.NewProgressBar("", t.MasteryLevel/100, true, progressBarWidth)
			fmt.Fprintf(out, "%-28s  %s  %-18s  %s\n",
				title, bar.View(), theme.StatusBadge(t.Status), theme.Hint.Render(fmtAgo(t.LastPracticed, now)))
		}
		return nil
	},
}
