package filekind

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Classifier applies rules in descending priority order; the first match
// wins and unmatched paths are Source.
type Classifier struct {
	rules []Rule
}

// Default returns a Classifier with the built-in rules only.
func Default() *Classifier {
	c, _ := NewClassifier(nil)
	return c
}

// NewClassifier creates a Classifier with the built-in rules plus
// overrides, a map from kind name to globs. Overrides are checked before
// any built-in rule and may name kinds of their own.
func NewClassifier(overrides map[string][]string) (*Classifier, error) {
	rules := DefaultRules()

	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("file kind override with empty name")
		}
		for _, g := range overrides[name] {
			if !doublestar.ValidatePattern(g) {
				return nil, fmt.Errorf("file kind %s: invalid glob %q", name, g)
			}
		}
		rules = append(rules, Rule{Kind: Kind(name), Globs: overrides[name], Priority: overridePriority})
	}

	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return &Classifier{rules: rules}, nil
}

// Classify returns the kind of the file at p.
func (c *Classifier) Classify(p string) Kind {
	p = filepath.ToSlash(p)
	base := path.Base(p)
	for _, rule := range c.rules {
		if matchAny(rule.Globs, p, base) {
			return rule.Kind
		}
	}
	return Source
}

func matchAny(globs []string, full, base string) bool {
	for _, g := range globs {
		target := base
		if strings.Contains(g, "/") {
			target = full
		}
		if ok, _ := doublestar.Match(g, target); ok {
			return true
		}
	}
	return false
}
