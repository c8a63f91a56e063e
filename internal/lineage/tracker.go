// Package lineage assigns stable global ids to clone fragments across a
// sequence of revisions.
//
// Revisions are folded strictly in order. Each fragment of revision r is
// re-projected into revision r-1 with the edits of the r-1 → r transition
// and matched against r-1's fragments: the first fragment whose range
// overlaps the projected range passes its global id on. A fragment that
// overlaps nothing is a newly born clone and gets the next unused id.
// Several fragments of one revision may inherit the same id; the registry
// keeps the last of them for that revision.
package lineage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/clone"
)

// ErrOutOfOrder is returned when revisions are not processed consecutively.
var ErrOutOfOrder = errors.New("revision out of order")

// RevisionStats summarizes one processed revision.
type RevisionStats struct {
	Revision  int  `json:"revision"`
	Baseline  bool `json:"baseline"`
	Fragments int  `json:"fragments"`
	Matched   int  `json:"matched"`
	Born      int  `json:"born"`

	// Split counts fragments born because their first overlap had already
	// been inherited in the same revision. Only WithSplitOnReclaim does this.
	Split int `json:"split"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMode selects the adjustment arithmetic. The default is ModeCompat.
func WithMode(m Mode) Option {
	return func(t *Tracker) { t.mode = m }
}

// WithBasePath strips basePath + "/" from fragment paths before looking up
// their edits. Detectors usually report paths under the directory they were
// run on while diffs are relative to the repository root.
func WithBasePath(basePath string) Option {
	return func(t *Tracker) { t.basePath = strings.TrimSuffix(basePath, "/") }
}

// WithCrossFileMatching lets a fragment match a previous fragment in any
// file, as the historical implementation did. By default a fragment only
// matches fragments reported under the same path.
func WithCrossFileMatching(enabled bool) Option {
	return func(t *Tracker) { t.crossFile = enabled }
}

// WithSplitOnReclaim gives a fragment a new id when the id of its first
// overlap was already inherited by an earlier fragment of the same
// revision, so that every id has at most one fragment per revision. This
// changes the ids of all later births.
func WithSplitOnReclaim(enabled bool) Option {
	return func(t *Tracker) { t.splitOnReclaim = enabled }
}

// WithObserver registers fn to be called after every processed revision.
func WithObserver(fn func(RevisionStats)) Option {
	return func(t *Tracker) { t.observer = fn }
}

// Tracker folds revisions into a Registry. The zero value is not usable;
// create one with NewTracker. A Tracker is not safe for concurrent use.
type Tracker struct {
	registry       *Registry
	mode           Mode
	basePath       string
	crossFile      bool
	splitOnReclaim bool
	observer       func(RevisionStats)

	started  bool
	prevRev  int
	previous []*clone.Fragment
}

// NewTracker returns a Tracker whose first processed revision is the
// baseline.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{registry: NewRegistry()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Registry returns the registry built so far.
func (t *Tracker) Registry() *Registry {
	return t.registry
}

// Process folds one revision into the registry. The first call establishes
// the baseline: every fragment gets a new id and edits are ignored. Later
// calls must supply the next consecutive revision together with the edits
// of the transition into it.
func (t *Tracker) Process(set clone.RevisionSet, edits changelog.FileEdits) (RevisionStats, error) {
	if t.started && set.Revision != t.prevRev+1 {
		return RevisionStats{}, fmt.Errorf("%w: got revision %d after %d", ErrOutOfOrder, set.Revision, t.prevRev)
	}

	fragments := set.Fragments()
	stats := RevisionStats{
		Revision:  set.Revision,
		Baseline:  !t.started,
		Fragments: len(fragments),
	}

	for _, f := range fragments {
		if stats.Baseline {
			t.registry.assignNew(f, set.Revision)
			stats.Born++
			continue
		}

		start, end := Adjust(f, edits.For(t.relativePath(f.FilePath)), t.mode)
		match := t.firstOverlap(f.FilePath, start, end)
		if match == nil {
			t.registry.assignNew(f, set.Revision)
			stats.Born++
			continue
		}

		id, _ := match.GlobalID()
		if t.splitOnReclaim && t.registry.claimed(id, set.Revision) {
			t.registry.assignNew(f, set.Revision)
			stats.Born++
			stats.Split++
			continue
		}
		t.registry.assign(f, id, set.Revision)
		stats.Matched++
	}

	t.started = true
	t.prevRev = set.Revision
	t.previous = fragments

	if t.observer != nil {
		t.observer(stats)
	}
	return stats, nil
}

func (t *Tracker) relativePath(p string) string {
	if t.basePath == "" {
		return p
	}
	return strings.TrimPrefix(p, t.basePath+"/")
}

// firstOverlap returns the first fragment of the previous revision, in
// report order, whose range overlaps [start, end].
func (t *Tracker) firstOverlap(path string, start, end int) *clone.Fragment {
	for _, c := range t.previous {
		if !t.crossFile && c.FilePath != path {
			continue
		}
		if c.Overlaps(start, end) {
			return c
		}
	}
	return nil
}
