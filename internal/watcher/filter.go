package watcher

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnorePatterns are always ignored regardless of user configuration.
// Editors and detectors leave these next to reports while writing them.
var defaultIgnorePatterns = []string{
	".git",
	".DS_Store",
	"*.swp",
	"*.swo",
	"*~",
	"*.tmp",
	"*.tmp.*",
	"*.part",
}

// Filter checks paths, relative to a watched root, against ignore patterns.
// A pattern without a slash is matched against every path component, so
// ".git" matches "a/.git/HEAD"; a pattern with a slash is matched against
// the whole slash-separated path with doublestar semantics, so
// "archive/**" matches everything below archive.
type Filter struct {
	component []string
	whole     []string
}

// NewFilter creates a Filter with the default patterns merged with any
// additional user-supplied patterns. Duplicates and invalid patterns are
// dropped.
func NewFilter(extra []string) *Filter {
	f := &Filter{}
	seen := make(map[string]struct{}, len(defaultIgnorePatterns)+len(extra))
	for _, p := range append(append([]string{}, defaultIgnorePatterns...), extra...) {
		p = strings.TrimSpace(p)
		if p == "" || !doublestar.ValidatePattern(p) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if strings.Contains(p, "/") {
			f.whole = append(f.whole, p)
		} else {
			f.component = append(f.component, p)
		}
	}
	return f
}

// ShouldIgnore reports whether rel matches any ignore pattern. rel is
// relative to the watched root; "." (the root itself) is never ignored.
func (f *Filter) ShouldIgnore(rel string) bool {
	rel = filepath.ToSlash(filepath.Clean(rel))
	if rel == "." {
		return false
	}

	for _, pattern := range f.whole {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	for _, component := range strings.Split(rel, "/") {
		for _, pattern := range f.component {
			if ok, _ := doublestar.Match(pattern, component); ok {
				return true
			}
		}
	}
	return false
}
