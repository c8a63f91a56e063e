// Package report assembles and formats views of a clone database: status,
// single-clone history, survival and per-revision run summaries.
package report

import (
	"errors"
	"fmt"
	"sort"

	"github.com/highbeam/clonetrack/internal/store"
)

// Status summarizes the contents of a clone database.
type Status struct {
	DBPath        string            `json:"db_path"`
	DBSizeBytes   int64             `json:"db_size_bytes"`
	Rows          int64             `json:"rows"`
	Clones        int64             `json:"clones"`
	HasClones     bool              `json:"has_clones"`
	FirstRevision int               `json:"first_revision"`
	LastRevision  int               `json:"last_revision"`
	Commits       int               `json:"commits"`
	RunState      map[string]string `json:"run_state"`
}

// runStateKeys are reported by status, in display order.
var runStateKeys = []string{
	store.StateBranch,
	store.StateMinRevision,
	store.StateMaxRevision,
	store.StateAdjustMode,
	store.StateDetector,
	store.StateLastRun,
}

// GenerateStatus reads the status of an open store.
func GenerateStatus(s *store.Store) (*Status, error) {
	st := &Status{DBPath: s.Path(), RunState: make(map[string]string)}

	var err error
	if st.DBSizeBytes, err = s.DBSizeBytes(); err != nil {
		return nil, fmt.Errorf("db size: %w", err)
	}
	if st.Rows, err = s.CloneCount(); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}
	if st.Clones, err = s.GlobalIDCount(); err != nil {
		return nil, fmt.Errorf("count clones: %w", err)
	}
	if st.FirstRevision, st.LastRevision, st.HasClones, err = s.RevisionBounds(); err != nil {
		return nil, fmt.Errorf("revision bounds: %w", err)
	}

	revs, err := s.QueryRevisions()
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	st.Commits = len(revs)

	for _, key := range runStateKeys {
		v, ok, err := s.GetRunState(key)
		if err != nil {
			return nil, err
		}
		if ok {
			st.RunState[key] = v
		}
	}
	return st, nil
}

// History is the life of one clone.
type History struct {
	GlobalID int              `json:"global_id"`
	Rows     []store.CloneRow `json:"rows"`
	// Commits maps revisions to commit hashes where known.
	Commits map[int]string `json:"commits,omitempty"`
}

// ErrUnknownClone is returned for a global id without rows.
var ErrUnknownClone = errors.New("unknown clone")

// GenerateHistory collects the rows of clone id.
func GenerateHistory(s *store.Store, id int) (*History, error) {
	rows, err := s.QueryCloneHistory(id)
	if err != nil {
		return nil, fmt.Errorf("query clone %d: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownClone, id)
	}

	revs, err := s.QueryRevisions()
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	h := &History{GlobalID: id, Rows: rows}
	if len(revs) > 0 {
		h.Commits = make(map[int]string, len(rows))
		for _, r := range revs {
			h.Commits[r.Revision] = r.CommitHash
		}
	}
	return h, nil
}

// sortedKeys returns the keys of m in ascending order.
func sortedKeys[K ~int | ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
