package pattern

import (
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/gobwas/glob"
)

// Matcher tests package names against a Set. Patterns are compiled on first
// use, so a malformed pattern surfaces as an error from Match rather than at
// load time.
//
// Matching is anchored to the whole name. '*' matches any run of characters
// (dots included), '?' exactly one; character classes and {a,b} alternation are
// accepted as well.
type Matcher struct {
	patterns []string
	compiled []glob.Glob
}

// NewMatcher creates a Matcher for set.
func NewMatcher(set Set) *Matcher {
	return &Matcher{
		patterns: set.Patterns(),
		compiled: make([]glob.Glob, set.Len()),
	}
}

// Match reports whether name matches at least one pattern. Patterns are tried
// in order and matching stops at the first hit.
func (m *Matcher) Match(name string) (bool, error) {
	for i := range m.patterns {
		g, err := m.glob(i)
		if err != nil {
			return false, err
		}
		if g.Match(name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) glob(i int) (glob.Glob, error) {
	if g := m.compiled[i]; g != nil {
		return g, nil
	}
	g, err := glob.Compile(m.patterns[i])
	if err != nil {
		return nil, errors.ErrInvalidPatternWithDetails(m.patterns[i], err)
	}
	m.compiled[i] = g
	return g, nil
}
