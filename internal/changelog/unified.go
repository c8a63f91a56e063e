package changelog

import (
	"fmt"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// DefaultContext is the number of context lines around each hunk, matching
// git's default.
const DefaultContext = 3

// UnifiedDiff renders a git-style unified diff from oldText to newText.
// Names are given without the a/ and b/ prefixes. Identical inputs yield an
// empty diff.
func UnifiedDiff(oldName, newName, oldText, newText string) (string, error) {
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "a/" + oldName,
		ToFile:   "b/" + newName,
		Context:  DefaultContext,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("unified diff %s -> %s: %w", oldName, newName, err)
	}
	return s, nil
}

// DiffTexts is UnifiedDiff followed by Normalize.
func DiffTexts(oldName, newName, oldText, newText string) ([]Edit, error) {
	d, err := UnifiedDiff(oldName, newName, oldText, newText)
	if err != nil {
		return nil, err
	}
	return Normalize(d), nil
}
