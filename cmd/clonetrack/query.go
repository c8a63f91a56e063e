package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/report"
	"github.com/highbeam/clonetrack/internal/survival"
)

func historyCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history <global-id>",
		Short: "Show one clone across revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("global id %q is not a number", args[0])
			}

			_, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			h, err := report.GenerateHistory(s, id)
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(h))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatHistory(h))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func revisionCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "revision <revision>",
		Short: "List the clones present in one revision",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rev, err := strconv.Atoi(args[0])
			if err != nil || rev < 0 {
				return fmt.Errorf("revision %q is not a non-negative number", args[0])
			}

			_, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			rows, err := s.QueryRevision(rev)
			if err != nil {
				return fmt.Errorf("query revision %d: %w", rev, err)
			}
			if jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(rows))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatRevision(rev, rows))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func survivalCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "survival",
		Short: "Show how long clones survive",
		Long: `Analyze the clones table: how many clones are still alive in the last
revision, how long they lived, when they were born and died, how much they
were edited and how survival differs between file kinds (source, test,
generated, vendor and any kinds set in file_kinds).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			kinds, err := cfg.Classifier()
			if err != nil {
				return fmt.Errorf("file kinds: %w", err)
			}
			sr, err := survival.Analyze(s, survival.WithClassifier(kinds))
			if err != nil {
				return fmt.Errorf("survival analysis: %w", err)
			}
			if jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(sr))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatSurvival(sr))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func statusCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := report.GenerateStatus(s)
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(st))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatStatus(st))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}
