package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/mathlab/internal/app"
	"github.com/abhisek/mathlab/internal/config"
	"github.com/abhisek/mathlab/internal/store"
)

// dbEnvVar overrides the database path when --db is not given.
const dbEnvVar = "MATHLAB_DB"

var rootCmd = &cobra.Command{
	Use:           "mathlab",
	Short:         "Knowledge-graph progression engine for adaptive math practice",
	Long:          "Mathlab tracks mastery over a prerequisite graph of math topics, unlocks new topics as prerequisites are mastered and builds a daily practice queue.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MATHLAB_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (default ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(queueCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(kpCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then MATHLAB_DB env var, then the config file, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if p := os.Getenv(dbEnvVar); p != "" {
		return p, store.EnsureDir(p)
	}
	if p := cfg.Database.Path; p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

// openApp loads configuration, opens the store and makes sure the curriculum
// exercises are present.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, app.Options{DBPath: dbPath})
	if err != nil {
		return nil, err
	}
	if err := a.SeedCurriculum(cmd.Context()); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
