package watcher

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter selects paths below a root that match any of a set of glob patterns.
type Filter struct {
	root     string
	patterns []string
}

// NewFilter creates a Filter for patterns relative to root.
// Invalid patterns are reported by Validate and never match.
func NewFilter(root string, patterns []string) *Filter {
	return &Filter{root: root, patterns: patterns}
}

// Validate returns the first malformed pattern, if any.
func (f *Filter) Validate() (string, bool) {
	for _, p := range f.patterns {
		if !doublestar.ValidatePattern(p) {
			return p, false
		}
	}
	return "", true
}

// Match reports whether path matches any pattern.
func (f *Filter) Match(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(f.root, path)
		if err != nil {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)

	for _, p := range f.patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
