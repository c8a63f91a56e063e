package gitint

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/highbeam/clonetrack/internal/changelog"
)

// Diff returns the unified diff that turns commit from into commit to, the
// equivalent of `git diff <from> <to>`.
func (r *Repository) Diff(from, to string) (string, error) {
	fc, err := r.commit(from)
	if err != nil {
		return "", err
	}
	tc, err := r.commit(to)
	if err != nil {
		return "", err
	}
	patch, err := fc.Patch(tc)
	if err != nil {
		return "", fmt.Errorf("diff %s..%s: %w", short(from), short(to), err)
	}
	return patch.String(), nil
}

// ChangeLog returns the simplified edits recorded for revision rev of revs.
// The diff runs from rev back to rev-1, so every line number is expressed
// in the older revision's coordinates as seen from the newer one.
func (r *Repository) ChangeLog(revs []string, rev int) ([]changelog.Edit, error) {
	if rev < 1 || rev >= len(revs) {
		return nil, fmt.Errorf("revision %d outside 1..%d", rev, len(revs)-1)
	}
	text, err := r.Diff(revs[rev], revs[rev-1])
	if err != nil {
		return nil, fmt.Errorf("revision %d: %w", rev, err)
	}
	return changelog.Simplify(changelog.Normalize(text)), nil
}

// GenerateChangeLogs writes one change-log file per revision in
// [minRev, maxRev] that has a predecessor, named by the revision number,
// into dir. observe, when non-nil, is called after each file is written.
func (r *Repository) GenerateChangeLogs(ctx context.Context, revs []string, minRev, maxRev int, dir string, observe func(rev int, edits []changelog.Edit)) error {
	if maxRev >= len(revs) {
		return fmt.Errorf("max revision %d beyond last revision %d", maxRev, len(revs)-1)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create change log dir: %w", err)
	}

	for rev := max(minRev, 1); rev <= maxRev; rev++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		edits, err := r.ChangeLog(revs, rev)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, strconv.Itoa(rev))
		if err := changelog.WriteFile(path, edits); err != nil {
			return fmt.Errorf("write change log %d: %w", rev, err)
		}
		log.Printf("gitint: revision %d (%s..%s): %d edits", rev, short(revs[rev]), short(revs[rev-1]), len(edits))
		if observe != nil {
			observe(rev, edits)
		}
	}
	return nil
}

func short(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
