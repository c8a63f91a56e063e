package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/config"
	"github.com/highbeam/clonetrack/internal/lineage"
	"github.com/highbeam/clonetrack/internal/pipeline"
	"github.com/highbeam/clonetrack/internal/report"
)

// mapFlags override config values when set on the command line.
type mapFlags struct {
	minRev       int
	maxRev       int
	mode         string
	basePath     string
	reportDir    string
	changeLogDir string
	allowMissing bool
	crossFile    bool
	split        bool
}

func (f *mapFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.minRev, "min", 0, "Baseline revision")
	cmd.Flags().IntVar(&f.maxRev, "max", -1, "Last revision (-1: last report)")
	cmd.Flags().StringVar(&f.mode, "mode", "", "Range adjustment: compat or corrected")
	cmd.Flags().StringVar(&f.basePath, "base-path", "", "Prefix of report paths to strip before looking up edits")
	cmd.Flags().StringVar(&f.reportDir, "reports", "", "Report directory (default: from config)")
	cmd.Flags().StringVar(&f.changeLogDir, "changes", "", "Change log directory (default: from config)")
	cmd.Flags().BoolVar(&f.allowMissing, "allow-missing", false, "Treat missing reports as revisions without clones")
	cmd.Flags().BoolVar(&f.crossFile, "cross-file", false, "Let clones match fragments in other files")
	cmd.Flags().BoolVar(&f.split, "split-on-reclaim", false, "Give a new id to a fragment whose match was already inherited in the same revision")
}

func (f *mapFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("min") {
		cfg.MinRevision = f.minRev
	}
	if changed("max") {
		cfg.MaxRevision = f.maxRev
	}
	if changed("mode") {
		cfg.AdjustMode = f.mode
	}
	if changed("base-path") {
		cfg.BasePath = f.basePath
	}
	if changed("reports") {
		cfg.ReportDir = f.reportDir
	}
	if changed("changes") {
		cfg.ChangeLogDir = f.changeLogDir
	}
	if changed("allow-missing") {
		cfg.AllowMissingReports = f.allowMissing
	}
	if changed("cross-file") {
		cfg.MatchAcrossFiles = f.crossFile
	}
	if changed("split-on-reclaim") {
		cfg.SplitOnReclaim = f.split
	}
}

func mapCmd(g *globalFlags) *cobra.Command {
	var (
		flags      mapFlags
		jsonOutput bool
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Assign global ids to clones across revisions",
		Long: `Fold the clone reports <reports>/<r> for every revision in range, using
the change logs <changes>/<r> to follow each clone from one revision to the
next, and replace the clones table of the database with the result.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()
			flags.apply(cmd, cfg)

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("validate config: %w", err)
			}
			minRev, maxRev, err := pipeline.Bounds(cfg)
			if err != nil {
				return err
			}

			bar := newProgressBar("revisions", maxRev-minRev+1, quiet || jsonOutput)
			res, err := pipeline.Map(cmd.Context(), cfg, s, pipeline.Options{
				Progress: func(lineage.RevisionStats) { advance(bar) },
			})
			finish(bar)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				fmt.Fprintln(out, report.FormatJSON(res))
				return nil
			}
			fmt.Fprint(out, report.FormatRun(res.Revisions))
			fmt.Fprintf(out, "\n%d clones over revisions %d..%d written to %s\n", res.Clones, res.MinRevision, res.MaxRevision, cfg.DBPath)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}
