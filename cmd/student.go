package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathlab/internal/tutor"
	"github.com/abhisek/mathlab/internal/ui/theme"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard [student-id]",
	Short: "Create a student and unlock the root topics",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var id string
		if len(args) == 1 {
			id = args[0]
		}
		name, _ := cmd.Flags().GetString("name")

		res, err := a.Tutor.Onboard(cmd.Context(), id, name)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.Created {
			fmt.Fprintln(out, theme.Title.Render("Welcome, "+displayName(res.Name, res.StudentID)+"!"))
		} else {
			fmt.Fprintln(out, theme.Subtitle.Render("Student already exists."))
		}
		fmt.Fprintf(out, "Student ID: %s\n", res.StudentID)
		for _, kp := range res.Unlocked {
			fmt.Fprintf(out, "  unlocked %s\n", kp)
		}
		return nil
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <student-id> <exercise-id> <answer>",
	Short: "Submit an answer to an exercise",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		spent, _ := cmd.Flags().GetDuration("time")
		res, err := a.Tutor.Submit(cmd.Context(), tutor.SubmitRequest{
			StudentID:  args[0],
			ExerciseID: args[1],
			Answer:     args[2],
			TimeSpent:  spent,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.IsCorrect {
			fmt.Fprintln(out, theme.Correct.Render("Correct!"))
			fmt.Fprintln(out, theme.Reward.Render(fmt.Sprintf("+%d XP  +%d coins", res.XPEarned, res.CoinsEarned)))
		} else {
			fmt.Fprintln(out, theme.Incorrect.Render("Not quite."))
			fmt.Fprintf(out, "Answer: %s\n", res.CorrectAnswer)
			if res.Hint != "" {
				fmt.Fprintln(out, theme.Hint.Render("Hint: "+res.Hint))
			}
		}
		fmt.Fprintf(out, "Attempt %d  •  mastery %.0f%%  •  %s\n", res.AttemptNumber, res.MasteryLevel, theme.StatusBadge(res.Status))
		if res.Badge != nil {
			fmt.Fprintln(out, theme.Reward.Render(fmt.Sprintf("Badge earned: %s (%s)", res.Badge.Title, res.Badge.Rarity.DisplayName())))
		}
		if len(res.Unlocked) > 0 {
			fmt.Fprintf(out, "Unlocked: %s\n", strings.Join(res.Unlocked, ", "))
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <student-id>",
	Short: "Re-derive a student's mastery and rerun every unlock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Tutor.Audit(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(report.Repaired) == 0 && len(report.Unlocked) == 0 {
			fmt.Fprintln(out, "Nothing to repair.")
			return nil
		}
		for _, tr := range report.Repaired {
			fmt.Fprintf(out, "repaired %-24s %s -> %s (%.0f%%)\n",
				tr.After.KnowledgePointID, tr.Before.Status, tr.After.Status, tr.After.Level)
		}
		for _, kp := range report.Unlocked {
			fmt.Fprintf(out, "unlocked %s\n", kp)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <student-id>",
	Short: "Show a student's mastery status changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Tutor.History(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No history yet.")
			return nil
		}
		for _, e := range events {
			fmt.Fprintf(out, "%s  %-24s %-11s -> %-11s %-8s %3.0f%%\n",
				e.At.Local().Format(time.DateTime), e.KnowledgePointID, e.From, e.To, e.Reason, e.MasteryLevel)
		}
		return nil
	},
}

func init() {
	onboardCmd.Flags().String("name", "", "Display name")
	submitCmd.Flags().Duration("time", 0, "Time spent on the exercise (e.g. 45s)")
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// fmtAgo renders a coarse "time since" for progress tables.
func fmtAgo(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	d := now.Sub(*t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
