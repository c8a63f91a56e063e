// Package clone holds the per-revision clone data model: fragments as the
// detector reports them, grouped into classes, grouped into revisions.
//
// Class and PC ids are assigned by the detector independently for every
// revision and are not stable keys. The cross-revision identity of a
// fragment is its global id, which is assigned by the lineage tracker.
package clone

import "fmt"

// Fragment is one contiguous line range in one file that the detector
// reported as a member of a clone class in a single revision.
type Fragment struct {
	ClassID   int    `json:"class_id"`
	PCID      int    `json:"pc_id"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	FilePath  string `json:"file_path"`

	// AdditionCount and DeletionCount accumulate the edits charged to this
	// fragment during the transition into its revision.
	AdditionCount int `json:"addition_count"`
	DeletionCount int `json:"deletion_count"`

	globalID *int
}

// NewFragment returns a fragment with zeroed counters and no global id.
func NewFragment(classID, pcID, startLine, endLine int, filePath string) *Fragment {
	return &Fragment{
		ClassID:   classID,
		PCID:      pcID,
		StartLine: startLine,
		EndLine:   endLine,
		FilePath:  filePath,
	}
}

// GlobalID returns the assigned global id and whether one has been assigned.
func (f *Fragment) GlobalID() (int, bool) {
	if f.globalID == nil {
		return 0, false
	}
	return *f.globalID, true
}

// SetGlobalID assigns the fragment's global id. A global id never changes
// once set; assigning a different one panics.
func (f *Fragment) SetGlobalID(id int) {
	if f.globalID != nil {
		if *f.globalID != id {
			panic(fmt.Sprintf("clone: fragment %s already has global id %d, cannot reassign to %d", f, *f.globalID, id))
		}
		return
	}
	f.globalID = &id
}

// Overlaps reports whether the inclusive range [start, end] intersects the
// fragment's range.
func (f *Fragment) Overlaps(start, end int) bool {
	return start <= f.EndLine && f.StartLine <= end
}

// String returns "path:start-end".
func (f *Fragment) String() string {
	return fmt.Sprintf("%s:%d-%d", f.FilePath, f.StartLine, f.EndLine)
}

// Class is a detector-assigned group of mutually duplicated fragments.
type Class struct {
	ID        int
	Fragments []*Fragment
}

// RevisionSet holds every clone class reported for one revision, in report
// order. The order is significant: it decides global id assignment and the
// first-match tie-break.
type RevisionSet struct {
	Revision int
	Classes  []Class
}

// Fragments returns all fragments of the revision, classes first, then
// fragments within each class, in report order.
func (s RevisionSet) Fragments() []*Fragment {
	var n int
	for _, c := range s.Classes {
		n += len(c.Fragments)
	}
	out := make([]*Fragment, 0, n)
	for _, c := range s.Classes {
		out = append(out, c.Fragments...)
	}
	return out
}

// Len returns the total number of fragments in the revision.
func (s RevisionSet) Len() int {
	var n int
	for _, c := range s.Classes {
		n += len(c.Fragments)
	}
	return n
}

// Class returns the class with the given detector id.
func (s RevisionSet) Class(id int) (Class, bool) {
	for _, c := range s.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return Class{}, false
}
