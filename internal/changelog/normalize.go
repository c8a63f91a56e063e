package changelog

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// maxLineSize bounds a single diff or change-log line. Minified sources can
// produce very long lines.
const maxLineSize = 16 * 1024 * 1024

var (
	// ansiRe matches SGR colour sequences such as "\x1b[32m" and "\x1b[m".
	ansiRe = regexp.MustCompile(`\x1b\[[0-9;]*m`)

	// The path runs up to an optional tab-separated timestamp.
	newFileRe = regexp.MustCompile(`^\+\+\+ (?:b/)?([^\t]+)`)
	hunkRe    = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// Normalize converts unified diff text into an ordered edit sequence. See
// NormalizeReader.
func Normalize(diff string) []Edit {
	var n normalizer
	for _, line := range strings.Split(diff, "\n") {
		n.feed(line)
	}
	return n.edits
}

// NormalizeReader converts unified diff text into an ordered edit sequence.
//
// "+++" headers set the current file, "---" headers are ignored and "@@"
// hunk headers reset the line counter to the hunk's new-file start. Every
// context, inserted or deleted line yields one edit; inserted and context
// lines advance the counter, deleted lines do not. An empty line is a
// context line while the hunk still expects lines on both sides. Colour escape sequences
// are stripped before a line is inspected, so coloured diffs normalize the
// same as plain ones.
func NormalizeReader(r io.Reader) ([]Edit, error) {
	var n normalizer
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		n.feed(sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read diff: %w", err)
	}
	return n.edits, nil
}

type normalizer struct {
	path   string
	line   int
	inHunk bool

	// Lines still expected in the current hunk on each side. While either
	// is positive, "---"/"+++" lines are content, not file headers.
	oldLeft int
	newLeft int

	edits []Edit
}

func (n *normalizer) feed(raw string) {
	line := ansiRe.ReplaceAllString(raw, "")

	budget := n.oldLeft > 0 || n.newLeft > 0
	if !budget {
		if strings.HasPrefix(line, "--- ") {
			return
		}
		if m := newFileRe.FindStringSubmatch(line); m != nil {
			n.path = strings.TrimRight(m[1], " \r")
			n.inHunk = false
			return
		}
	}

	if m := hunkRe.FindStringSubmatch(line); m != nil {
		n.line, _ = strconv.Atoi(m[3])
		n.oldLeft = hunkCount(m[2])
		n.newLeft = hunkCount(m[4])
		n.inHunk = true
		return
	}

	if line == "" {
		// Editors and mail clients strip the single space of an empty
		// context line. Count it while the hunk still expects context.
		if !n.inHunk || n.oldLeft <= 0 || n.newLeft <= 0 {
			return
		}
		line = " "
	}
	op, ok := ParseOperation(line[0])
	if !ok {
		// Metadata ("diff --git", "index", "\ No newline...") ends the hunk.
		if line[0] != '\\' {
			n.oldLeft, n.newLeft = 0, 0
		}
		return
	}
	if !n.inHunk {
		return
	}

	n.edits = append(n.edits, Edit{FilePath: n.path, LineNumber: n.line, Op: op})
	switch op {
	case Unchanged:
		n.line++
		n.oldLeft--
		n.newLeft--
	case Inserted:
		n.line++
		n.newLeft--
	case Deleted:
		n.oldLeft--
	}
}

// hunkCount parses an optional hunk length; an omitted length means 1.
func hunkCount(s string) int {
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
