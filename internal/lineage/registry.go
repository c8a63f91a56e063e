package lineage

import (
	"sort"

	"github.com/highbeam/clonetrack/internal/clone"
)

// Registry maps each global id to the fragment that represents that clone
// in every revision it appeared in. Ids are dense and zero-based: the index
// into the registry is the id, assigned in order of first appearance.
//
// A clone that stops being matched simply has no further entries. When
// several fragments of one revision inherit the same id, the last one
// assigned is the clone's entry for that revision.
type Registry struct {
	entries []map[int]*clone.Fragment
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Len returns the number of distinct global ids assigned so far, which is
// also the next id to be assigned.
func (r *Registry) Len() int {
	return len(r.entries)
}

// assignNew gives f the next unused global id as of revision rev.
func (r *Registry) assignNew(f *clone.Fragment, rev int) int {
	id := len(r.entries)
	r.entries = append(r.entries, make(map[int]*clone.Fragment))
	r.assign(f, id, rev)
	return id
}

// assign records f as clone id's state in revision rev, replacing any
// fragment recorded earlier for the same revision.
func (r *Registry) assign(f *clone.Fragment, id, rev int) {
	f.SetGlobalID(id)
	r.entries[id][rev] = f
}

// claimed reports whether clone id already has a fragment in revision rev.
func (r *Registry) claimed(id, rev int) bool {
	_, ok := r.entries[id][rev]
	return ok
}

// History returns a copy of clone id's revision → fragment mapping, or nil
// for an unknown id.
func (r *Registry) History(id int) map[int]*clone.Fragment {
	if id < 0 || id >= len(r.entries) {
		return nil
	}
	out := make(map[int]*clone.Fragment, len(r.entries[id]))
	for rev, f := range r.entries[id] {
		out[rev] = f
	}
	return out
}

// Revisions returns the revisions clone id appeared in, ascending.
func (r *Registry) Revisions(id int) []int {
	if id < 0 || id >= len(r.entries) {
		return nil
	}
	revs := make([]int, 0, len(r.entries[id]))
	for rev := range r.entries[id] {
		revs = append(revs, rev)
	}
	sort.Ints(revs)
	return revs
}

// Row is one (clone, revision) pair, flattened for persistence.
type Row struct {
	GlobalID      int
	Revision      int
	PCID          int
	ClassID       int
	StartLine     int
	EndLine       int
	AdditionCount int
	DeletionCount int
	FilePath      string
}

// Rows flattens the registry ordered by global id, then revision.
func (r *Registry) Rows() []Row {
	var rows []Row
	for id := range r.entries {
		for _, rev := range r.Revisions(id) {
			f := r.entries[id][rev]
			rows = append(rows, Row{
				GlobalID:      id,
				Revision:      rev,
				PCID:          f.PCID,
				ClassID:       f.ClassID,
				StartLine:     f.StartLine,
				EndLine:       f.EndLine,
				AdditionCount: f.AdditionCount,
				DeletionCount: f.DeletionCount,
				FilePath:      f.FilePath,
			})
		}
	}
	return rows
}
