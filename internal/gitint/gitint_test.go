package gitint

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/clonetrack/internal/changelog"
)

func initTestRepo(t *testing.T, dir string) *gogit.Repository {
	t.Helper()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func testAuthor() *object.Signature {
	return &object.Signature{
		Name:  "Test Author",
		Email: "test@example.com",
		When:  time.Now(),
	}
}

// commitFiles writes files into the worktree and commits them, returning
// the new commit hash.
func commitFiles(t *testing.T, repo *gogit.Repository, dir string, files map[string]string, msg string) string {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, content := range files {
		writeFile(t, dir, name, content)
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit(msg, &gogit.CommitOptions{Author: testAuthor()})
	require.NoError(t, err)
	return hash.String()
}

// historyRepo builds three revisions:
//
//	0: a.txt = l1 l2 l3
//	1: a.txt gains l0 at the top
//	2: b.txt is added
func historyRepo(t *testing.T) (string, []string) {
	t.Helper()
	dir := t.TempDir()
	repo := initTestRepo(t, dir)
	h0 := commitFiles(t, repo, dir, map[string]string{"a.txt": "l1\nl2\nl3\n"}, "initial")
	h1 := commitFiles(t, repo, dir, map[string]string{"a.txt": "l0\nl1\nl2\nl3\n"}, "prepend")
	h2 := commitFiles(t, repo, dir, map[string]string{"b.txt": "x\ny\n"}, "add b")
	return dir, []string{h0, h1, h2}
}

func TestRevisionListOldestFirst(t *testing.T) {
	dir, want := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	revs, err := r.RevisionList("")
	require.NoError(t, err)
	assert.Equal(t, want, revs)

	byBranch, err := r.RevisionList("master")
	require.NoError(t, err)
	assert.Equal(t, want, byBranch)

	upToOne, err := r.RevisionList(want[1])
	require.NoError(t, err)
	assert.Equal(t, want[:2], upToOne)
}

func TestRevisionListEmptyRepo(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	r, err := Open(dir)
	require.NoError(t, err)

	_, err = r.RevisionList("")
	assert.ErrorIs(t, err, ErrNoCommits)
}

func TestOpenNotARepo(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestCurrentBranch(t *testing.T) {
	dir, _ := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	branch, err := r.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "master", branch)
}

func TestDiffIsUnified(t *testing.T) {
	dir, revs := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	text, err := r.Diff(revs[0], revs[1])
	require.NoError(t, err)
	assert.Contains(t, text, "+++ b/a.txt")
	assert.Contains(t, text, "@@ -1,3 +1,4 @@")
	assert.Contains(t, text, "+l0")

	assert.Equal(t, []changelog.Edit{
		{FilePath: "a.txt", LineNumber: 1, Op: changelog.Inserted},
	}, changelog.Simplify(changelog.Normalize(text)))
}

func TestChangeLogRunsBackwards(t *testing.T) {
	dir, revs := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	edits, err := r.ChangeLog(revs, 1)
	require.NoError(t, err)
	assert.Equal(t, []changelog.Edit{
		{FilePath: "a.txt", LineNumber: 1, Op: changelog.Deleted},
	}, edits)

	_, err = r.ChangeLog(revs, 0)
	assert.Error(t, err)
	_, err = r.ChangeLog(revs, 3)
	assert.Error(t, err)
}

func TestGenerateChangeLogs(t *testing.T) {
	dir, revs := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "changes")
	var observed []int
	err = r.GenerateChangeLogs(context.Background(), revs, 0, 2, out, func(rev int, _ []changelog.Edit) {
		observed = append(observed, rev)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, observed)

	_, err = os.Stat(filepath.Join(out, "0"))
	assert.True(t, os.IsNotExist(err), "baseline has no change log")

	one, err := changelog.ReadFile(filepath.Join(out, "1"))
	require.NoError(t, err)
	assert.Equal(t, []changelog.Edit{{FilePath: "a.txt", LineNumber: 1, Op: changelog.Deleted}}, one)

	two, err := changelog.ReadFile(filepath.Join(out, "2"))
	require.NoError(t, err)
	ins, del := changelog.Count(two)
	assert.Equal(t, 0, ins)
	assert.Equal(t, 2, del)
}

func TestGenerateChangeLogsRejectsRangeBeyondHistory(t *testing.T) {
	dir, revs := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	err = r.GenerateChangeLogs(context.Background(), revs, 0, 5, t.TempDir(), nil)
	assert.Error(t, err)
}

func TestGenerateChangeLogsCancelled(t *testing.T) {
	dir, revs := historyRepo(t)
	r, err := Open(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.GenerateChangeLogs(ctx, revs, 0, 2, t.TempDir(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
