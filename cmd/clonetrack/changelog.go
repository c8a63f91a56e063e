package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/gitint"
	"github.com/highbeam/clonetrack/internal/lineage"
	"github.com/highbeam/clonetrack/internal/store"
)

func changelogCmd(g *globalFlags) *cobra.Command {
	var (
		repoPath string
		branch   string
		outDir   string
		minRev   int
		maxRev   int
		quiet    bool
	)

	cmd := &cobra.Command{
		Use:   "changelog",
		Short: "Write per-revision change logs from git history",
		Long: `Number the first-parent history of a branch from 0 (oldest commit) and
write, for every revision r in range with r >= 1, the change log of the
diff between r and r-1 into <out>/<r>. The revision list is stored in the
database so later reports can show commit hashes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, s, err := g.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			if !cmd.Flags().Changed("branch") {
				branch = cfg.Branch
			}
			if !cmd.Flags().Changed("out") {
				outDir = cfg.ChangeLogDir
			}
			if !cmd.Flags().Changed("min") {
				minRev = cfg.MinRevision
			}
			if !cmd.Flags().Changed("max") {
				maxRev = cfg.MaxRevision
			}

			repo, err := gitint.Open(repoPath)
			if err != nil {
				return err
			}
			if branch == "" {
				if branch, err = repo.CurrentBranch(); err != nil {
					return err
				}
			}
			revs, err := repo.RevisionList(branch)
			if err != nil {
				return fmt.Errorf("list revisions of %s: %w", branch, err)
			}
			if maxRev < 0 {
				maxRev = len(revs) - 1
			}
			if err := lineage.ValidateRange(minRev, maxRev); err != nil {
				return err
			}

			bar := newProgressBar("change logs", maxRev-max(minRev, 1)+1, quiet)
			var inserted, deleted int
			err = repo.GenerateChangeLogs(cmd.Context(), revs, minRev, maxRev, outDir, func(_ int, edits []changelog.Edit) {
				ins, del := changelog.Count(edits)
				inserted += ins
				deleted += del
				advance(bar)
			})
			finish(bar)
			if err != nil {
				return err
			}

			if err := s.InsertRevisions(revs); err != nil {
				return fmt.Errorf("store revisions: %w", err)
			}
			if err := s.SetRunState(store.StateBranch, branch); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s@%s: %d revisions, change logs %d..%d written to %s (+%d -%d)\n",
				repo.Path(), branch, len(revs), max(minRev, 1), maxRev, outDir, inserted, deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&repoPath, "repo", ".", "Path to the git repository")
	cmd.Flags().StringVar(&branch, "branch", "", "Branch to number (default: from config, else the current branch)")
	cmd.Flags().StringVar(&outDir, "out", "", "Change log directory (default: from config)")
	cmd.Flags().IntVar(&minRev, "min", 0, "First revision")
	cmd.Flags().IntVar(&maxRev, "max", -1, "Last revision (-1: last commit)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not draw a progress bar")

	return cmd
}
