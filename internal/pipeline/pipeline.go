// Package pipeline runs a complete mapping pass: read reports and change
// logs from disk, fold them into clone lineage and persist the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/highbeam/clonetrack/internal/config"
	"github.com/highbeam/clonetrack/internal/lineage"
	"github.com/highbeam/clonetrack/internal/nicad"
	"github.com/highbeam/clonetrack/internal/store"
)

// ErrNoReports is returned when the report directory has no revision files
// and no explicit max revision is configured.
var ErrNoReports = errors.New("no reports found")

// Result summarizes a mapping pass.
type Result struct {
	MinRevision int                     `json:"min_revision"`
	MaxRevision int                     `json:"max_revision"`
	Clones      int                     `json:"clones"`
	Rows        int                     `json:"rows"`
	Revisions   []lineage.RevisionStats `json:"revisions"`
	Elapsed     time.Duration           `json:"elapsed"`
}

// Options tune a mapping pass beyond the config.
type Options struct {
	// Progress, when non-nil, is called after each revision is folded.
	Progress func(lineage.RevisionStats)
}

// LastRevision returns the highest revision number among the files in dir.
// Files whose name is not a non-negative integer are ignored.
func LastRevision(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", dir, err)
	}
	last := -1
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		n, err := strconv.Atoi(e.Name())
		if err != nil || n < 0 {
			continue
		}
		last = max(last, n)
	}
	if last < 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoReports, dir)
	}
	return last, nil
}

// Bounds resolves the configured revision range, looking up the last report
// when max_revision is -1.
func Bounds(cfg *config.Config) (minRev, maxRev int, err error) {
	minRev, maxRev = cfg.MinRevision, cfg.MaxRevision
	if maxRev < 0 {
		if maxRev, err = LastRevision(cfg.ReportDir); err != nil {
			return 0, 0, err
		}
	}
	if err := lineage.ValidateRange(minRev, maxRev); err != nil {
		return 0, 0, err
	}
	return minRev, maxRev, nil
}

// Map folds the configured revision range and replaces the clones table of
// s with the result. Nothing is written when the fold fails.
func Map(ctx context.Context, cfg *config.Config, s *store.Store, opts Options) (*Result, error) {
	start := time.Now()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	minRev, maxRev, err := Bounds(cfg)
	if err != nil {
		return nil, err
	}

	src := nicad.DirSource{
		ReportDir:           cfg.ReportDir,
		ChangeLogDir:        cfg.ChangeLogDir,
		AllowMissingReports: cfg.AllowMissingReports,
	}

	res := &Result{MinRevision: minRev, MaxRevision: maxRev}
	observe := lineage.WithObserver(func(st lineage.RevisionStats) {
		res.Revisions = append(res.Revisions, st)
		if opts.Progress != nil {
			opts.Progress(st)
		}
	})

	reg, err := lineage.Run(ctx, src, minRev, maxRev, append(cfg.TrackerOptions(), observe)...)
	if err != nil {
		return nil, fmt.Errorf("map revisions %d..%d: %w", minRev, maxRev, err)
	}

	rows := CloneRows(reg)
	if err := s.ReplaceClones(rows); err != nil {
		return nil, fmt.Errorf("store clones: %w", err)
	}
	if err := recordRun(s, cfg, minRev, maxRev); err != nil {
		return nil, err
	}

	res.Clones = reg.Len()
	res.Rows = len(rows)
	res.Elapsed = time.Since(start)
	log.Printf("pipeline: mapped revisions %d..%d: %d clones, %d rows in %s",
		minRev, maxRev, res.Clones, res.Rows, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// CloneRows converts a registry into store rows.
func CloneRows(reg *lineage.Registry) []store.CloneRow {
	src := reg.Rows()
	rows := make([]store.CloneRow, len(src))
	for i, r := range src {
		rows[i] = store.CloneRow{
			GlobalID:      r.GlobalID,
			Revision:      r.Revision,
			PCID:          r.PCID,
			ClassID:       r.ClassID,
			StartLine:     r.StartLine,
			EndLine:       r.EndLine,
			AdditionCount: r.AdditionCount,
			DeletionCount: r.DeletionCount,
			FilePath:      r.FilePath,
		}
	}
	return rows
}

func recordRun(s *store.Store, cfg *config.Config, minRev, maxRev int) error {
	state := map[string]string{
		store.StateMinRevision: strconv.Itoa(minRev),
		store.StateMaxRevision: strconv.Itoa(maxRev),
		store.StateAdjustMode:  cfg.AdjustMode,
		store.StateDetector:    cfg.Detector.Granularity + " " + cfg.Detector.Language,
		store.StateLastRun:     time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range state {
		if err := s.SetRunState(k, v); err != nil {
			return err
		}
	}
	return nil
}
