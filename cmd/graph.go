package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathlab/internal/ui/theme"
)

var graphCmd = &cobra.Command{
	Use:   "graph <student-id>",
	Short: "Show the knowledge graph with a student's statuses",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		progressive, _ := cmd.Flags().GetBool("progressive")
		if progressive {
			parent, _ := cmd.Flags().GetString("parent")
			nodes, err := a.Tutor.ProgressiveView(cmd.Context(), args[0], parent)
			if err != nil {
				return err
			}
			for _, n := range nodes {
				more := ""
				if n.HasChildren {
					more = " ▸"
				}
				fmt.Fprintf(out, "%-28s %s%s\n", n.ID, theme.StatusBadge(n.Status), more)
			}
			return nil
		}

		view, err := a.Tutor.GraphView(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		prereqs := make(map[string][]string)
		for _, e := range view.Edges {
			prereqs[e.Target] = append(prereqs[e.Target], e.Source)
		}
		for _, n := range view.Nodes {
			line := fmt.Sprintf("%s%-28s %s", strings.Repeat("  ", n.Layer), n.ID, theme.StatusBadge(n.Status))
			if ps := prereqs[n.ID]; len(ps) > 0 {
				line += theme.Hint.Render("  ← " + strings.Join(ps, ", "))
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var kpCmd = &cobra.Command{
	Use:   "kp",
	Short: "Browse knowledge points",
}

var kpListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all knowledge points in topological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		counts, err := a.Store.Exercises.CountsByKnowledgePoint(cmd.Context())
		if err != nil {
			return err
		}

		g := a.Curriculum.Graph
		out := cmd.OutOrStdout()

		// Header.
		fmt.Fprintf(out, "%-24s  %-30s  %5s  %5s  %9s  %s\n",
			"ID", "Title", "Layer", "Depth", "Exercises", "Prerequisites")
		fmt.Fprintln(out, strings.Repeat("─", 110))

		for _, kp := range g.TopologicalOrder() {
			title := kp.Title
			if len(title) > 30 {
				title = title[:27] + "..."
			}
			fmt.Fprintf(out, "%-24s  %-30s  %5d  %5d  %9d  %s\n",
				kp.ID, title, kp.Layer, g.Depth(kp.ID), counts[kp.ID], strings.Join(kp.Prerequisites, ", "))
		}

		fmt.Fprintf(out, "\n%d knowledge points\n", g.Len())
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the curriculum exercises into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		// openApp upserts the curriculum.
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d exercises across %d knowledge points.\n",
			len(a.Curriculum.Exercises), a.Curriculum.Graph.Len())
		return nil
	},
}

func init() {
	graphCmd.Flags().Bool("progressive", false, "Show only the children of --parent (roots when empty)")
	graphCmd.Flags().String("parent", "", "Parent knowledge point for --progressive")

	kpCmd.AddCommand(kpListCmd)
}
