package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathlab/internal/ui/theme"
)

var queueCmd = &cobra.Command{
	Use:   "queue <student-id>",
	Short: "Show today's practice queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		q, err := a.Tutor.DailyQueue(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(q.Items) == 0 {
			fmt.Fprintln(out, "Nothing to practice right now.")
			return nil
		}
		fmt.Fprintln(out, theme.Title.Render("Today's practice"))
		fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf("%d new  •  %d review", q.Summary.NewCount, q.Summary.ReviewCount)))
		for _, it := range q.Items {
			tag := "new"
			if it.IsReview {
				tag = "review"
			}
			done := " "
			if it.Completed {
				done = "✓"
			}
			fmt.Fprintf(out, "%s %-12s %-7s d%d  %s\n", done, it.ID, tag, it.Difficulty, it.Question)
		}
		return nil
	},
}
