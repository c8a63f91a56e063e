package lineage

import (
	"fmt"

	"github.com/highbeam/clonetrack/internal/changelog"
	"github.com/highbeam/clonetrack/internal/clone"
)

// Mode selects the range adjustment arithmetic.
type Mode int

const (
	// ModeCompat reproduces the historical adjustment exactly, so that
	// global ids match databases produced by earlier versions of the tool.
	// Offsets of edits before the fragment start are applied twice, the
	// running offset is added to the adjusted start again on every edit
	// past the start boundary and a boundary the scan never passes is left
	// unadjusted.
	ModeCompat Mode = iota

	// ModeCorrected applies every edit's offset once and always applies the
	// accumulated shift to both ends.
	ModeCorrected
)

// String returns the configuration name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeCompat:
		return "compat"
	case ModeCorrected:
		return "corrected"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode maps a configuration name to a Mode. The empty string selects
// ModeCompat.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "compat":
		return ModeCompat, nil
	case "corrected":
		return ModeCorrected, nil
	default:
		return 0, fmt.Errorf("unknown adjust mode %q (want compat or corrected)", s)
	}
}

// Adjust re-projects f's range into the coordinates of the previous
// revision using the edits recorded for f's file, in order. Edits that fall
// inside the fragment are charged to its AdditionCount and DeletionCount.
// A file with no edits maps onto itself.
func Adjust(f *clone.Fragment, edits []changelog.Edit, mode Mode) (start, end int) {
	if mode == ModeCorrected {
		return adjustCorrected(f, edits)
	}
	return adjustCompat(f, edits)
}

func adjustCompat(f *clone.Fragment, edits []changelog.Edit) (start, end int) {
	start, end = f.StartLine, f.EndLine
	offset := 0
	for _, e := range edits {
		if e.LineNumber <= f.StartLine {
			offset += delta(e.Op)
		} else {
			start += offset
		}

		if e.LineNumber > f.EndLine {
			end = f.EndLine + offset
			break
		}
		offset += delta(e.Op)
		charge(f, e.Op)
	}
	return start, end
}

// adjustCorrected compares each edit against the fragment's boundaries as
// projected so far, since edit line numbers are already in the target
// coordinates.
func adjustCorrected(f *clone.Fragment, edits []changelog.Edit) (start, end int) {
	var startShift, endShift int
	for _, e := range edits {
		d := delta(e.Op)
		if e.LineNumber < f.StartLine+startShift {
			startShift += d
			endShift += d
			continue
		}
		if e.LineNumber > f.EndLine+endShift {
			break
		}
		endShift += d
		charge(f, e.Op)
	}

	start, end = f.StartLine+startShift, f.EndLine+endShift
	if end < start {
		// The whole span was deleted; keep a one-line anchor.
		end = start
	}
	return start, end
}

func delta(op changelog.Operation) int {
	switch op {
	case changelog.Inserted:
		return 1
	case changelog.Deleted:
		return -1
	default:
		return 0
	}
}

func charge(f *clone.Fragment, op changelog.Operation) {
	switch op {
	case changelog.Inserted:
		f.AdditionCount++
	case changelog.Deleted:
		f.DeletionCount++
	}
}
