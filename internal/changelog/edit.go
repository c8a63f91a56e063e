// Package changelog turns unified diffs into per-line edit sequences and
// reads and writes them in the persisted change-log format:
//
//	<filePath>:<lineNumber>:<op>
//
// where op is '+' (inserted), '-' (deleted) or ' ' (unchanged). Line numbers
// are in the coordinate system of the "+++" side of the diff they came from.
package changelog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Operation is the kind of a single-line edit.
type Operation byte

const (
	Unchanged Operation = ' '
	Inserted  Operation = '+'
	Deleted   Operation = '-'
)

// String returns the operation's marker character.
func (o Operation) String() string {
	return string(o)
}

// Name returns a human-readable name for the operation.
func (o Operation) Name() string {
	switch o {
	case Inserted:
		return "inserted"
	case Deleted:
		return "deleted"
	case Unchanged:
		return "unchanged"
	default:
		return fmt.Sprintf("unknown(%q)", byte(o))
	}
}

// ParseOperation maps a marker character to an Operation.
func ParseOperation(c byte) (Operation, bool) {
	switch Operation(c) {
	case Inserted, Deleted, Unchanged:
		return Operation(c), true
	}
	return 0, false
}

// Edit is one line-level operation anchored to a file and line number.
//
// For inserted and unchanged lines LineNumber is the line's position in the
// new file. A deleted line does not exist in the new file; its LineNumber is
// the position of the line that follows it.
type Edit struct {
	FilePath   string
	LineNumber int
	Op         Operation
}

// String returns the persisted form of the edit.
func (e Edit) String() string {
	return e.FilePath + ":" + strconv.Itoa(e.LineNumber) + ":" + e.Op.String()
}

// FileEdits groups edits by file path. Each slice keeps the order the edits
// were produced in.
type FileEdits map[string][]Edit

// GroupByFile splits an edit sequence per file, preserving order.
func GroupByFile(edits []Edit) FileEdits {
	out := make(FileEdits)
	for _, e := range edits {
		out[e.FilePath] = append(out[e.FilePath], e)
	}
	return out
}

// For returns the edits recorded for path. Untouched files yield nil.
func (fe FileEdits) For(path string) []Edit {
	return fe[path]
}

// Simplify drops unchanged edits, keeping only insertions and deletions.
func Simplify(edits []Edit) []Edit {
	out := make([]Edit, 0, len(edits))
	for _, e := range edits {
		if e.Op == Inserted || e.Op == Deleted {
			out = append(out, e)
		}
	}
	return out
}

// Count returns the number of insertions and deletions in edits.
func Count(edits []Edit) (inserted, deleted int) {
	for _, e := range edits {
		switch e.Op {
		case Inserted:
			inserted++
		case Deleted:
			deleted++
		}
	}
	return inserted, deleted
}

// Format renders edits in the persisted change-log format, one per line.
func Format(edits []Edit) string {
	var b strings.Builder
	for _, e := range edits {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ErrMalformed is returned by Parse for lines that are not
// "<path>:<line>:<op>".
var ErrMalformed = errors.New("malformed change log line")

// Parse reads a persisted change log. Blank lines are skipped. The path may
// itself contain colons; the line number and operation are taken from the
// last two fields.
func Parse(r io.Reader) ([]Edit, error) {
	var edits []Edit
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		row := strings.TrimSuffix(sc.Text(), "\r")
		if row == "" {
			continue
		}
		e, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		edits = append(edits, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read change log: %w", err)
	}
	return edits, nil
}

func parseRow(row string) (Edit, error) {
	opSep := strings.LastIndexByte(row, ':')
	if opSep <= 0 || opSep != len(row)-2 {
		return Edit{}, fmt.Errorf("%w: %q", ErrMalformed, row)
	}
	op, ok := ParseOperation(row[len(row)-1])
	if !ok {
		return Edit{}, fmt.Errorf("%w: unknown operation in %q", ErrMalformed, row)
	}
	lineSep := strings.LastIndexByte(row[:opSep], ':')
	if lineSep <= 0 {
		return Edit{}, fmt.Errorf("%w: %q", ErrMalformed, row)
	}
	n, err := strconv.Atoi(row[lineSep+1 : opSep])
	if err != nil || n < 0 {
		return Edit{}, fmt.Errorf("%w: bad line number in %q", ErrMalformed, row)
	}
	return Edit{FilePath: row[:lineSep], LineNumber: n, Op: op}, nil
}

// ReadFile parses the change log stored at path.
func ReadFile(path string) ([]Edit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	edits, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return edits, nil
}

// WriteFile stores edits at path in the persisted format.
func WriteFile(path string, edits []Edit) error {
	return os.WriteFile(path, []byte(Format(edits)), 0644)
}
