// Package pattern loads package-name glob patterns and matches package names against them.
package pattern

import (
	"io"
	"os"

	"github.com/glorpus-work/apkpick/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Set is the ordered, immutable list of patterns for one run.
type Set struct {
	patterns []string
}

// NewSet copies patterns into a Set.
func NewSet(patterns ...string) Set {
	return Set{patterns: append([]string(nil), patterns...)}
}

// Patterns returns a copy of the patterns in load order.
func (s Set) Patterns() []string {
	return append([]string(nil), s.patterns...)
}

// Len returns the number of patterns.
func (s Set) Len() int {
	return len(s.patterns)
}

// LoadFile reads a YAML list of patterns from path.
func LoadFile(path string) (Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return Set{}, errors.Categorize(errors.ErrConfig, errors.Wrapf(err, "failed to open pattern file %s", path))
	}
	defer func() { _ = file.Close() }()

	set, err := Load(file)
	if err != nil {
		return Set{}, errors.Wrapf(err, "pattern file %s", path)
	}
	return set, nil
}

// Load decodes a YAML sequence of strings. Entries are kept verbatim: no
// deduplication and no glob validation happen here. An empty document yields an
// empty Set.
func Load(r io.Reader) (Set, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Set{}, errors.Categorize(errors.ErrConfig, errors.Wrap(err, "failed to read patterns"))
	}

	var patterns []string
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return Set{}, errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrPatternFileParse, err.Error()))
	}
	return Set{patterns: patterns}, nil
}
