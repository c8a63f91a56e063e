package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "clones.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRows() []CloneRow {
	return []CloneRow{
		{GlobalID: 1, Revision: 0, PCID: 3, ClassID: 2, StartLine: 40, EndLine: 50, FilePath: "b.ts"},
		{GlobalID: 0, Revision: 1, PCID: 3, ClassID: 7, StartLine: 6, EndLine: 10, AdditionCount: 1, FilePath: "a.ts"},
		{GlobalID: 0, Revision: 0, PCID: 11, ClassID: 1, StartLine: 5, EndLine: 9, FilePath: "a.ts"},
	}
}

func TestNew_MigratesToCurrentVersion(t *testing.T) {
	s := newTestStore(t)

	v, err := currentVersion(s.db)
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, v)

	for _, table := range []string{"clones", "revisions", "run_state"} {
		var n int
		err := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clones.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceClones(sampleRows()))
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.CloneCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestNew_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clones.db")
	s, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s.SetRunState(schemaVersionKey, "99"))
	require.NoError(t, s.Close())

	_, err = New(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestReplaceClonesAndQuery(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceClones(sampleRows()))

	all, err := s.QueryClones()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 0, all[0].GlobalID)
	assert.Equal(t, 0, all[0].Revision)
	assert.Equal(t, 1, all[1].Revision)
	assert.Equal(t, 1, all[2].GlobalID)

	hist, err := s.QueryCloneHistory(0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, CloneRow{GlobalID: 0, Revision: 1, PCID: 3, ClassID: 7, StartLine: 6, EndLine: 10, AdditionCount: 1, FilePath: "a.ts"}, hist[1])

	none, err := s.QueryCloneHistory(42)
	require.NoError(t, err)
	assert.Empty(t, none)

	rev0, err := s.QueryRevision(0)
	require.NoError(t, err)
	assert.Len(t, rev0, 2)

	ids, err := s.GlobalIDCount()
	require.NoError(t, err)
	assert.Equal(t, int64(2), ids)

	lo, hi, ok, err := s.RevisionBounds()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 1, hi)
}

func TestReplaceClonesDiscardsPreviousRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceClones(sampleRows()))
	require.NoError(t, s.ReplaceClones(sampleRows()[:1]))

	n, err := s.CloneCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestReplaceClonesRollsBackOnDuplicateKey(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ReplaceClones(sampleRows()))

	dup := []CloneRow{
		{GlobalID: 5, Revision: 0, FilePath: "x"},
		{GlobalID: 5, Revision: 0, FilePath: "y"},
	}
	require.Error(t, s.ReplaceClones(dup))

	n, err := s.CloneCount()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "failed replace must keep the previous rows")
}

func TestRevisionBoundsEmpty(t *testing.T) {
	s := newTestStore(t)
	_, _, ok, err := s.RevisionBounds()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRunState(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetRunState(StateBranch)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetRunState(StateBranch, "main"))
	require.NoError(t, s.SetRunState(StateBranch, "develop"))

	v, ok, err := s.GetRunState(StateBranch)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "develop", v)
}

func TestRevisions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InsertRevisions([]string{"aaa", "bbb", "ccc"}))
	require.NoError(t, s.InsertRevisions([]string{"aaa", "bbb"}))

	revs, err := s.QueryRevisions()
	require.NoError(t, err)
	assert.Equal(t, []Revision{{0, "aaa"}, {1, "bbb"}}, revs)
}

func TestDBSizeBytes(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, "clones.db", filepath.Base(s.Path()))
	size, err := s.DBSizeBytes()
	require.NoError(t, err)
	assert.Positive(t, size)
}
