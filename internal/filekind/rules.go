// Package filekind sorts source paths into kinds such as tests, generated
// code or vendored code, so that clone statistics can be broken down by
// what the cloned code is.
package filekind

// Kind is the category of a source file.
type Kind string

const (
	// Source is hand-written product code. It is the default when no rule
	// matches.
	Source Kind = "source"

	// Test is test code and test fixtures.
	Test Kind = "test"

	// Generated is output of code generators and minifiers.
	Generated Kind = "generated"

	// Vendor is third-party code copied into the repository.
	Vendor Kind = "vendor"
)

// All returns the built-in kinds.
func All() []Kind {
	return []Kind{Source, Test, Generated, Vendor}
}

// Rule assigns Kind to paths matching any of Globs.
//
// Globs use doublestar syntax. A glob containing "/" is matched against the
// whole slash-separated path, any other glob against the base name only.
type Rule struct {
	Kind     Kind
	Globs    []string
	Priority int // Higher priority wins when several rules match.
}

// overridePriority ranks user rules above every built-in rule.
const overridePriority = 100

// DefaultRules returns the built-in rules.
//
// Priority tiers:
//
//	40 - Vendor (vendored dependency trees)
//	30 - Generated (generator naming conventions)
//	20 - Test (test naming conventions and test directories)
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind: Test,
			Globs: []string{
				"*_test.go",
				"*_test.py",
				"test_*.py",
				"*Test.java",
				"*Tests.java",
				"*.test.js",
				"*.test.ts",
				"*.test.tsx",
				"*.spec.js",
				"*.spec.ts",
				"*.spec.tsx",
				"**/test/**",
				"**/tests/**",
				"**/__tests__/**",
				"**/testdata/**",
			},
			Priority: 20,
		},
		{
			Kind: Generated,
			Globs: []string{
				"*.pb.go",
				"*_pb2.py",
				"*.gen.*",
				"*_generated.*",
				"*.generated.*",
				"*.min.js",
				"**/generated/**",
			},
			Priority: 30,
		},
		{
			Kind: Vendor,
			Globs: []string{
				"**/vendor/**",
				"**/node_modules/**",
				"**/third_party/**",
			},
			Priority: 40,
		},
	}
}
