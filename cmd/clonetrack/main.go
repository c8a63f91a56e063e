package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/config"
	"github.com/highbeam/clonetrack/internal/store"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	dbPath     string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "clonetrack",
		Short: "Track code clones across git revisions",
		Long: `clonetrack follows code clones through a project's history.

It turns git diffs into per-revision change logs, matches the clone
fragments of each revision against the previous one, and records every
clone under a stable global id in a SQLite database.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default: ~/.clonetrack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.dbPath, "db", "", "Override database path (default: from config)")

	rootCmd.AddCommand(normalizeCmd())
	rootCmd.AddCommand(changelogCmd(g))
	rootCmd.AddCommand(mapCmd(g))
	rootCmd.AddCommand(historyCmd(g))
	rootCmd.AddCommand(revisionCmd(g))
	rootCmd.AddCommand(survivalCmd(g))
	rootCmd.AddCommand(statusCmd(g))
	rootCmd.AddCommand(watchCmd(g))

	return rootCmd
}

// loadConfig reads the config file and applies the global overrides.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	return cfg, nil
}

// openStore loads the config and opens its database.
func (g *globalFlags) openStore() (*config.Config, *store.Store, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, s, nil
}
