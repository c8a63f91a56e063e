package nicad

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/lineage"
)

const sampleReport = `<clones>
<systeminfo processor="nicad6" system="source" granularity="functions-blind" threshold="30%" minlines="10" maxlines="2500"/>
<cloneinfo npcs="120" npairs="3"/>
<class classid="2" nclones="2" nlines="11" similarity="100">
<source file="systems/source/src/a.ts" startline="5" endline="15" pcid="40">
function a() {
  return 1 &lt; 2;
}
</source>
<source file="systems/source/src/b.ts" startline="20" endline="30" pcid="41"></source>
</class>
<class classid="1" nclones="2" nlines="9" similarity="90">
<source file="systems/source/src/a.ts" startline="50" endline="58" pcid="7"/>
<source file="systems/source/src/c.ts" startline="1" endline="9" pcid="8"/>
</class>
</clones>
`

func TestParseKeepsReportOrder(t *testing.T) {
	set, err := Parse(strings.NewReader(sampleReport))
	require.NoError(t, err)

	require.Equal(t, 2, len(set.Classes))
	assert.Equal(t, 2, set.Classes[0].ID)
	assert.Equal(t, 1, set.Classes[1].ID)
	assert.Equal(t, 4, set.Len())

	f := set.Classes[0].Fragments[0]
	assert.Equal(t, 2, f.ClassID)
	assert.Equal(t, 40, f.PCID)
	assert.Equal(t, 5, f.StartLine)
	assert.Equal(t, 15, f.EndLine)
	assert.Equal(t, "systems/source/src/a.ts", f.FilePath)
	_, assigned := f.GlobalID()
	assert.False(t, assigned)

	assert.Equal(t, "systems/source/src/c.ts", set.Classes[1].Fragments[1].FilePath)
}

func TestParseEmptyReport(t *testing.T) {
	for _, in := range []string{"", "  \n\t"} {
		set, err := Parse(strings.NewReader(in))
		require.NoError(t, err)
		assert.Zero(t, set.Len())
	}

	set, err := Parse(strings.NewReader("<clones></clones>"))
	require.NoError(t, err)
	assert.Zero(t, set.Len())
}

func TestParseSkipsNonNumericClassID(t *testing.T) {
	in := `<clones>
<class classid="x1"><source file="a" startline="1" endline="2" pcid="1"/></class>
<class><source file="b" startline="1" endline="2" pcid="2"/></class>
<class classid=" 3 "><source file="c" startline="1" endline="2" pcid="3"/></class>
</clones>`
	set, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, set.Classes, 1)
	assert.Equal(t, 3, set.Classes[0].ID)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"not xml", "<clones><class", "malformed clone report"},
		{"bad startline", `<clones><class classid="1"><source file="a" startline="one" endline="2" pcid="1"/></class></clones>`, "startline"},
		{"missing endline", `<clones><class classid="1"><source file="a" startline="1" pcid="1"/></class></clones>`, "endline"},
		{"bad pcid", `<clones><class classid="1"><source file="a" startline="1" endline="2" pcid="?"/></class></clones>`, "pcid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedReport)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	src := DirSource{
		ReportDir:    filepath.Join(dir, "reports"),
		ChangeLogDir: filepath.Join(dir, "changes"),
	}
	writeFile(t, src.ReportPath(0), sampleReport)
	writeFile(t, src.ReportPath(1), "")
	writeFile(t, src.ChangeLogPath(1), "src/a.ts:3:+\nsrc/a.ts:9:-\n")

	set, err := src.Report(0)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Revision)
	assert.Equal(t, 4, set.Len())

	set, err = src.Report(1)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Revision)
	assert.Zero(t, set.Len())

	edits, err := src.ChangeLog(1)
	require.NoError(t, err)
	assert.Equal(t, []changelog.Edit{
		{FilePath: "src/a.ts", LineNumber: 3, Op: changelog.Inserted},
		{FilePath: "src/a.ts", LineNumber: 9, Op: changelog.Deleted},
	}, edits)

	_, err = src.ChangeLog(2)
	assert.ErrorIs(t, err, lineage.ErrMissingChangeLog)

	_, err = src.Report(2)
	assert.Error(t, err)

	src.AllowMissingReports = true
	set, err = src.Report(2)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Revision)
	assert.Zero(t, set.Len())
}

func TestDirSourceDrivesRun(t *testing.T) {
	dir := t.TempDir()
	src := DirSource{ReportDir: filepath.Join(dir, "r"), ChangeLogDir: filepath.Join(dir, "c")}
	writeFile(t, src.ReportPath(0), `<clones><class classid="1">
<source file="systems/source/a.ts" startline="5" endline="9" pcid="11"/>
</class></clones>`)
	writeFile(t, src.ReportPath(1), `<clones><class classid="7">
<source file="systems/source/a.ts" startline="6" endline="10" pcid="3"/>
</class></clones>`)
	writeFile(t, src.ChangeLogPath(1), "a.ts:5:+\n")

	reg, err := lineage.Run(t.Context(), src, 0, 1, lineage.WithBasePath("systems/source"))
	require.NoError(t, err)
	require.Equal(t, 1, reg.Len())

	rows := reg.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[1].AdditionCount)
	assert.Equal(t, 7, rows[1].ClassID)
}
