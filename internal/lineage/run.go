package lineage

import (
	"context"
	"errors"
	"fmt"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/clone"
)

var (
	// ErrInvalidRange is returned for revision bounds that cannot be folded.
	ErrInvalidRange = errors.New("invalid revision range")

	// ErrMissingChangeLog is returned when a source has no change log for a
	// non-baseline revision.
	ErrMissingChangeLog = errors.New("missing change log")
)

// Source supplies the per-revision inputs of a run.
type Source interface {
	// Report returns the clone classes detected in revision rev. A revision
	// without clones yields an empty set, not an error.
	Report(rev int) (clone.RevisionSet, error)

	// ChangeLog returns the edits of the transition rev-1 → rev.
	ChangeLog(rev int) ([]changelog.Edit, error)
}

// ValidateRange checks revision bounds before any processing starts.
func ValidateRange(minRev, maxRev int) error {
	if minRev < 0 {
		return fmt.Errorf("%w: min revision %d is negative", ErrInvalidRange, minRev)
	}
	if maxRev < minRev {
		return fmt.Errorf("%w: max revision %d is before min revision %d", ErrInvalidRange, maxRev, minRev)
	}
	return nil
}

// Run folds revisions minRev..maxRev from src into a registry, minRev being
// the baseline. Any input error aborts the run: later revisions cannot be
// matched without earlier ones. Cancellation is checked between revisions;
// a cancelled run cannot be resumed and must start again from minRev.
func Run(ctx context.Context, src Source, minRev, maxRev int, opts ...Option) (*Registry, error) {
	if err := ValidateRange(minRev, maxRev); err != nil {
		return nil, err
	}

	t := NewTracker(opts...)
	for rev := minRev; rev <= maxRev; rev++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		set, err := src.Report(rev)
		if err != nil {
			return nil, fmt.Errorf("revision %d: report: %w", rev, err)
		}
		set.Revision = rev

		var edits changelog.FileEdits
		if rev > minRev {
			entries, err := src.ChangeLog(rev)
			if err != nil {
				return nil, fmt.Errorf("revision %d: change log: %w", rev, err)
			}
			edits = changelog.GroupByFile(entries)
		}

		if _, err := t.Process(set, edits); err != nil {
			return nil, fmt.Errorf("revision %d: %w", rev, err)
		}
	}
	return t.Registry(), nil
}

// MemorySource is a Source backed by in-memory maps. Revisions without a
// report contribute no fragments; revisions without a change log are an
// error.
type MemorySource struct {
	Reports    map[int]clone.RevisionSet
	ChangeLogs map[int][]changelog.Edit
}

// Report implements Source.
func (m MemorySource) Report(rev int) (clone.RevisionSet, error) {
	set, ok := m.Reports[rev]
	if !ok {
		return clone.RevisionSet{Revision: rev}, nil
	}
	return set, nil
}

// ChangeLog implements Source.
func (m MemorySource) ChangeLog(rev int) ([]changelog.Edit, error) {
	edits, ok := m.ChangeLogs[rev]
	if !ok {
		return nil, fmt.Errorf("%w for revision %d", ErrMissingChangeLog, rev)
	}
	return edits, nil
}
