package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/highbeam/clonetrack/internal/ipc"
	"github.com/highbeam/clonetrack/internal/lineage"
	"github.com/highbeam/clonetrack/internal/store"
	"github.com/highbeam/clonetrack/internal/survival"
)

// maxFiles caps the per-file survival table.
const maxFiles = 20

var (
	bold  = color.New(color.Bold).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	amber = color.New(color.FgYellow).SprintFunc()
)

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	return tbl
}

func heading(b *strings.Builder, title string) {
	b.WriteString(bold(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n\n")
}

// colorForRate colours survival: >= 70% green, 30-70% amber, below red.
func colorForRate(pct float64) string {
	s := fmt.Sprintf("%.1f%%", pct)
	switch {
	case pct >= 70:
		return green(s)
	case pct >= 30:
		return amber(s)
	default:
		return red(s)
	}
}

// FormatSurvival formats a survival report as terminal text.
func FormatSurvival(r *survival.Report) string {
	var b strings.Builder
	heading(&b, "Clone Survival")

	if r.TotalClones == 0 {
		b.WriteString("No clones recorded.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Revisions:     %d..%d\n", r.FirstRevision, r.LastRevision)
	fmt.Fprintf(&b, "Clones:        %s (%s alive)\n", humanize.Comma(int64(r.TotalClones)), humanize.Comma(int64(r.AliveCount)))
	fmt.Fprintf(&b, "Survival:      %s\n", colorForRate(r.SurvivalRate))
	fmt.Fprintf(&b, "Lifetime:      mean %.1f, max %d revisions (clone %d)\n", r.MeanLifetime, r.MaxLifetime, r.LongestLived)
	fmt.Fprintf(&b, "Edits:         +%s -%s across %d clones\n\n",
		humanize.Comma(int64(r.TotalAdditions)), humanize.Comma(int64(r.TotalDeletions)), r.EditedClones)

	b.WriteString(bold("Births and deaths") + "\n")
	events := newTable()
	events.AppendHeader(table.Row{"Revision", "Born", "Died"})
	seen := make(map[int]bool)
	for _, rev := range append(sortedKeys(r.Births), sortedKeys(r.Deaths)...) {
		seen[rev] = true
	}
	for _, rev := range sortedKeys(seen) {
		events.AppendRow(table.Row{rev, r.Births[rev], r.Deaths[rev]})
	}
	b.WriteString(events.Render() + "\n\n")

	b.WriteString(bold("File kinds") + "\n")
	kinds := newTable()
	kinds.AppendHeader(table.Row{"Kind", "Clones", "Alive", "Survival"})
	for _, kind := range sortedKeys(r.ByKind) {
		bd := r.ByKind[kind]
		kinds.AppendRow(table.Row{kind, bd.Tracked, bd.Survived, colorForRate(bd.Rate)})
	}
	b.WriteString(kinds.Render() + "\n\n")

	b.WriteString(bold("Files") + "\n")
	files := newTable()
	files.AppendHeader(table.Row{"File", "Clones", "Alive", "Survival"})
	paths := sortedKeys(r.ByFile)
	for i, path := range paths {
		if i == maxFiles {
			break
		}
		bd := r.ByFile[path]
		files.AppendRow(table.Row{path, bd.Tracked, bd.Survived, colorForRate(bd.Rate)})
	}
	if len(paths) > maxFiles {
		files.AppendFooter(table.Row{fmt.Sprintf("... and %d more files", len(paths)-maxFiles)})
	}
	b.WriteString(files.Render() + "\n")

	return b.String()
}

// FormatHistory formats one clone's history as terminal text.
func FormatHistory(h *History) string {
	var b strings.Builder
	heading(&b, fmt.Sprintf("Clone %d", h.GlobalID))

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Revision", "Commit", "Class", "PC", "File", "Lines", "+", "-"})
	for _, r := range h.Rows {
		commit := ""
		if hash, ok := h.Commits[r.Revision]; ok && len(hash) >= 7 {
			commit = hash[:7]
		}
		tbl.AppendRow(table.Row{
			r.Revision, commit, r.ClassID, r.PCID, r.FilePath,
			fmt.Sprintf("%d-%d", r.StartLine, r.EndLine),
			r.AdditionCount, r.DeletionCount,
		})
	}
	b.WriteString(tbl.Render() + "\n")
	return b.String()
}

// FormatStatus formats database status as terminal text.
func FormatStatus(s *Status) string {
	var b strings.Builder
	heading(&b, "Clone Database Status")

	fmt.Fprintf(&b, "%-16s %s\n", "Database:", s.DBPath)
	fmt.Fprintf(&b, "%-16s %s\n", "Size:", humanize.IBytes(uint64(max(s.DBSizeBytes, 0))))
	fmt.Fprintf(&b, "%-16s %s\n", "Clones:", humanize.Comma(s.Clones))
	fmt.Fprintf(&b, "%-16s %s\n", "Rows:", humanize.Comma(s.Rows))
	if s.HasClones {
		fmt.Fprintf(&b, "%-16s %d..%d\n", "Revisions:", s.FirstRevision, s.LastRevision)
	} else {
		fmt.Fprintf(&b, "%-16s %s\n", "Revisions:", "(none)")
	}
	fmt.Fprintf(&b, "%-16s %d\n", "Commits:", s.Commits)

	if len(s.RunState) > 0 {
		b.WriteString("\n" + bold("Last run") + "\n")
		for _, key := range runStateKeys {
			if v, ok := s.RunState[key]; ok {
				fmt.Fprintf(&b, "  %-14s %s\n", key+":", v)
			}
		}
	}
	return b.String()
}

// FormatRevision formats the clones present in one revision.
func FormatRevision(rev int, rows []store.CloneRow) string {
	var b strings.Builder
	heading(&b, fmt.Sprintf("Revision %d", rev))

	if len(rows) == 0 {
		b.WriteString("No clones in this revision.\n")
		return b.String()
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Clone", "Class", "PC", "File", "Lines", "+", "-"})
	for _, r := range rows {
		tbl.AppendRow(table.Row{
			r.GlobalID, r.ClassID, r.PCID, r.FilePath,
			fmt.Sprintf("%d-%d", r.StartLine, r.EndLine),
			r.AdditionCount, r.DeletionCount,
		})
	}
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d clones", len(rows))})
	b.WriteString(tbl.Render() + "\n")
	return b.String()
}

// FormatDaemonStatus formats the status reported by a running watch daemon.
func FormatDaemonStatus(s *ipc.StatusData) string {
	var b strings.Builder
	heading(&b, "Watch Daemon")

	fmt.Fprintf(&b, "%-16s %s\n", "Uptime:", s.Uptime)
	fmt.Fprintf(&b, "%-16s %d\n", "Passes:", s.Passes)
	if s.LastError != "" {
		fmt.Fprintf(&b, "%-16s %s\n", "Last error:", red(s.LastError))
	} else {
		fmt.Fprintf(&b, "%-16s %s\n", "Last pass:", green("ok"))
	}
	fmt.Fprintf(&b, "%-16s %s\n", "Size:", humanize.IBytes(uint64(max(s.DBSizeBytes, 0))))
	fmt.Fprintf(&b, "%-16s %s\n", "Clones:", humanize.Comma(s.Clones))
	fmt.Fprintf(&b, "%-16s %s\n", "Rows:", humanize.Comma(s.Rows))
	for i, p := range s.WatchedPaths {
		label := ""
		if i == 0 {
			label = "Watching:"
		}
		fmt.Fprintf(&b, "%-16s %s\n", label, p)
	}
	return b.String()
}

// FormatRun formats per-revision statistics of a mapping run.
func FormatRun(stats []lineage.RevisionStats) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Revision", "Fragments", "Matched", "Born", "Split"})
	var fragments, matched, born, split int
	for _, s := range stats {
		tbl.AppendRow(table.Row{s.Revision, s.Fragments, s.Matched, s.Born, s.Split})
		fragments += s.Fragments
		matched += s.Matched
		born += s.Born
		split += s.Split
	}
	tbl.AppendFooter(table.Row{"Total", fragments, matched, born, split})
	return tbl.Render() + "\n"
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
