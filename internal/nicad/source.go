package nicad

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strconv"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/clone"
	"github.com/highbeam/clonetrack/internal/lineage"
)

// DirSource reads per-revision inputs laid out as one file per revision,
// named by the revision number: <ReportDir>/<rev> and <ChangeLogDir>/<rev>.
type DirSource struct {
	ReportDir    string
	ChangeLogDir string

	// AllowMissingReports treats a missing report file as a revision with
	// no clones. Without it a missing report aborts the run.
	AllowMissingReports bool
}

var _ lineage.Source = DirSource{}

// ReportPath returns the report file of revision rev.
func (d DirSource) ReportPath(rev int) string {
	return filepath.Join(d.ReportDir, strconv.Itoa(rev))
}

// ChangeLogPath returns the change-log file of revision rev.
func (d DirSource) ChangeLogPath(rev int) string {
	return filepath.Join(d.ChangeLogDir, strconv.Itoa(rev))
}

// Report implements lineage.Source.
func (d DirSource) Report(rev int) (clone.RevisionSet, error) {
	set, err := ParseFile(d.ReportPath(rev))
	if err != nil {
		if d.AllowMissingReports && errors.Is(err, fs.ErrNotExist) {
			log.Printf("nicad: no report for revision %d, treating as empty", rev)
			return clone.RevisionSet{Revision: rev}, nil
		}
		return clone.RevisionSet{}, err
	}
	set.Revision = rev
	return set, nil
}

// ChangeLog implements lineage.Source.
func (d DirSource) ChangeLog(rev int) ([]changelog.Edit, error) {
	edits, err := changelog.ReadFile(d.ChangeLogPath(rev))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", lineage.ErrMissingChangeLog, d.ChangeLogPath(rev))
		}
		return nil, err
	}
	return edits, nil
}
