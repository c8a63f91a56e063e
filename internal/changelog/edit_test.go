package changelog

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndParse(t *testing.T) {
	edits := []Edit{
		{"src/a.ts", 5, Inserted},
		{"src/a.ts", 9, Deleted},
		{"C:/weird:path.ts", 12, Inserted},
	}

	text := Format(edits)
	assert.Equal(t, "src/a.ts:5:+\nsrc/a.ts:9:-\nC:/weird:path.ts:12:+\n", text)

	got, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, edits, got)
}

func TestParseSkipsBlankLinesAndCR(t *testing.T) {
	got, err := Parse(strings.NewReader("\na.go:1:+\r\n\n\nb.go:2:-\n"))
	require.NoError(t, err)
	assert.Equal(t, []Edit{{"a.go", 1, Inserted}, {"b.go", 2, Deleted}}, got)
}

func TestParseUnchanged(t *testing.T) {
	got, err := Parse(strings.NewReader("a.go:3: \n"))
	require.NoError(t, err)
	assert.Equal(t, []Edit{{"a.go", 3, Unchanged}}, got)
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		row  string
	}{
		{"no separators", "garbage"},
		{"missing op", "a.go:3"},
		{"long op", "a.go:3:++"},
		{"bad op", "a.go:3:*"},
		{"bad line", "a.go:x:+"},
		{"negative line", "a.go:-1:+"},
		{"empty path", ":3:+"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader("ok.go:1:+\n" + tc.row + "\n"))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestSimplifyAndCount(t *testing.T) {
	edits := []Edit{
		{"a", 1, Unchanged},
		{"a", 2, Inserted},
		{"a", 3, Unchanged},
		{"a", 3, Deleted},
		{"a", 3, Deleted},
	}

	ins, del := Count(edits)
	assert.Equal(t, 1, ins)
	assert.Equal(t, 2, del)

	assert.Equal(t, []Edit{{"a", 2, Inserted}, {"a", 3, Deleted}, {"a", 3, Deleted}}, Simplify(edits))
}

func TestReadWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "3")
	edits := []Edit{{"a.ts", 5, Inserted}, {"b.ts", 1, Deleted}}

	require.NoError(t, WriteFile(path, edits))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, edits, got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestOperationNames(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.Name())
	assert.Equal(t, "deleted", Deleted.Name())
	assert.Equal(t, "unchanged", Unchanged.Name())
	assert.Equal(t, "+", Inserted.String())

	_, ok := ParseOperation('x')
	assert.False(t, ok)
}
