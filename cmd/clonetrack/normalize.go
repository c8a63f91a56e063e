package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/changelog"
)

func normalizeCmd() *cobra.Command {
	var (
		oldPath string
		newPath string
		all     bool
	)

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Turn a unified diff into a change log",
		Long: `Read a unified diff (git diff output, coloured or not) from stdin and
print one <file>:<line>:<op> row per inserted or deleted line.

With --old and --new the diff of the two files is computed instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				edits []changelog.Edit
				err   error
			)
			switch {
			case oldPath != "" && newPath != "":
				edits, err = diffFiles(oldPath, newPath)
			case oldPath != "" || newPath != "":
				return fmt.Errorf("--old and --new must be given together")
			default:
				edits, err = changelog.NormalizeReader(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			if !all {
				edits = changelog.Simplify(edits)
			}
			fmt.Fprint(cmd.OutOrStdout(), changelog.Format(edits))
			return nil
		},
	}

	cmd.Flags().StringVar(&oldPath, "old", "", "Old version of the file")
	cmd.Flags().StringVar(&newPath, "new", "", "New version of the file")
	cmd.Flags().BoolVar(&all, "all", false, "Keep unchanged context lines")

	return cmd
}

func diffFiles(oldPath, newPath string) ([]changelog.Edit, error) {
	oldText, err := os.ReadFile(oldPath)
	if err != nil {
		return nil, fmt.Errorf("read old: %w", err)
	}
	newText, err := os.ReadFile(newPath)
	if err != nil {
		return nil, fmt.Errorf("read new: %w", err)
	}
	return changelog.DiffTexts(oldPath, newPath, string(oldText), string(newText))
}
