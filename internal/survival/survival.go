// Package survival measures how long clones live across the tracked
// revisions and how much they are edited along the way.
package survival

import (
	"fmt"
	"sort"

	"github.com/highbeam/clonetrack/internal/filekind"
	"github.com/highbeam/clonetrack/internal/store"
)

// Report holds the results of a clone survival analysis.
type Report struct {
	TotalClones   int     `json:"total_clones"`
	AliveCount    int     `json:"alive_count"`
	SurvivalRate  float64 `json:"survival_rate"`
	FirstRevision int     `json:"first_revision"`
	LastRevision  int     `json:"last_revision"`

	// Lifetimes are counted in revisions.
	MeanLifetime float64 `json:"mean_lifetime"`
	MaxLifetime  int     `json:"max_lifetime"`
	LongestLived int     `json:"longest_lived"`

	TotalAdditions int `json:"total_additions"`
	TotalDeletions int `json:"total_deletions"`
	// EditedClones counts clones with at least one edit charged to them.
	EditedClones int `json:"edited_clones"`

	Births map[int]int          `json:"births"`
	Deaths map[int]int          `json:"deaths"`
	ByFile map[string]Breakdown `json:"by_file"`
	// ByKind groups clones by the kind of the file they were born in.
	ByKind map[filekind.Kind]Breakdown `json:"by_kind"`
}

// Breakdown holds survival statistics for a single file or file kind.
type Breakdown struct {
	Tracked  int     `json:"tracked"`
	Survived int     `json:"survived"`
	Rate     float64 `json:"rate"`
}

// lifeline is one clone's span of revisions.
type lifeline struct {
	id        int
	first     int
	last      int
	revisions int
	file      string
	additions int
	deletions int
}

// Option configures an analysis.
type Option func(*options)

type options struct {
	classifier *filekind.Classifier
}

// WithClassifier sets the classifier behind Report.ByKind. The default is
// filekind.Default().
func WithClassifier(c *filekind.Classifier) Option {
	return func(o *options) { o.classifier = c }
}

// Analyze runs Compute over everything in the store.
func Analyze(s *store.Store, opts ...Option) (*Report, error) {
	rows, err := s.QueryClones()
	if err != nil {
		return nil, fmt.Errorf("query clones: %w", err)
	}
	return Compute(rows, opts...), nil
}

// Compute analyses rows. A clone is alive when it appears in the last
// revision present in rows; a clone whose last row is earlier died in the
// revision after it. A clone is attributed to the file it was born in.
func Compute(rows []store.CloneRow, opts ...Option) *Report {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.classifier == nil {
		o.classifier = filekind.Default()
	}

	report := &Report{
		Births: make(map[int]int),
		Deaths: make(map[int]int),
		ByFile: make(map[string]Breakdown),
		ByKind: make(map[filekind.Kind]Breakdown),
	}
	if len(rows) == 0 {
		return report
	}

	lines := make(map[int]*lifeline)
	report.FirstRevision, report.LastRevision = rows[0].Revision, rows[0].Revision
	for _, r := range rows {
		report.FirstRevision = min(report.FirstRevision, r.Revision)
		report.LastRevision = max(report.LastRevision, r.Revision)

		l, ok := lines[r.GlobalID]
		if !ok {
			l = &lifeline{id: r.GlobalID, first: r.Revision, last: r.Revision, file: r.FilePath}
			lines[r.GlobalID] = l
		}
		if r.Revision < l.first {
			l.first, l.file = r.Revision, r.FilePath
		}
		l.last = max(l.last, r.Revision)
		l.revisions++
		l.additions += r.AdditionCount
		l.deletions += r.DeletionCount
	}

	ids := make([]int, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var lifetimeSum int
	for _, id := range ids {
		l := lines[id]
		alive := l.last == report.LastRevision

		report.TotalClones++
		report.Births[l.first]++
		if alive {
			report.AliveCount++
		} else {
			report.Deaths[l.last+1]++
		}

		lifetimeSum += l.revisions
		if l.revisions > report.MaxLifetime {
			report.MaxLifetime = l.revisions
			report.LongestLived = l.id
		}

		report.TotalAdditions += l.additions
		report.TotalDeletions += l.deletions
		if l.additions+l.deletions > 0 {
			report.EditedClones++
		}

		report.ByFile[l.file] = report.ByFile[l.file].add(alive)
		kind := o.classifier.Classify(l.file)
		report.ByKind[kind] = report.ByKind[kind].add(alive)
	}

	report.SurvivalRate = rate(report.AliveCount, report.TotalClones)
	report.MeanLifetime = float64(lifetimeSum) / float64(report.TotalClones)
	for file, bd := range report.ByFile {
		bd.Rate = rate(bd.Survived, bd.Tracked)
		report.ByFile[file] = bd
	}
	for kind, bd := range report.ByKind {
		bd.Rate = rate(bd.Survived, bd.Tracked)
		report.ByKind[kind] = bd
	}
	return report
}

func (b Breakdown) add(alive bool) Breakdown {
	b.Tracked++
	if alive {
		b.Survived++
	}
	return b
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100.0
}
