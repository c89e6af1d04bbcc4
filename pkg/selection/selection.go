// Package selection reduces a stream of catalog records to the newest record
// per matched package.
package selection

import (
	"sort"

	"github.com/glorpus-work/apkpick/pkg/catalog"
)

// Selection maps package names to the record with the highest version code
// seen so far. The zero value is not usable; call New.
type Selection struct {
	byName map[string]catalog.Record
}

// New returns an empty Selection.
func New() *Selection {
	return &Selection{byName: make(map[string]catalog.Record)}
}

// Offer stores rec if its package is not present yet or if its version code is
// strictly higher than the stored one. Ties keep the record seen first.
// The stored copy always has a non-nil VersionCode.
func (s *Selection) Offer(rec catalog.Record) bool {
	rec = rec.Normalized()
	current, ok := s.byName[rec.PackageName]
	if ok && current.Version() >= rec.Version() {
		return false
	}
	s.byName[rec.PackageName] = rec
	return true
}

// Get returns the stored record for name.
func (s *Selection) Get(name string) (catalog.Record, bool) {
	rec, ok := s.byName[name]
	return rec, ok
}

// Len returns the number of selected packages.
func (s *Selection) Len() int {
	return len(s.byName)
}

// Records returns the selected records sorted by package name.
func (s *Selection) Records() []catalog.Record {
	out := make([]catalog.Record, 0, len(s.byName))
	for _, rec := range s.byName {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].PackageName < out[j].PackageName
	})
	return out
}
