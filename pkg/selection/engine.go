package selection

import (
	"context"
	"io"
	"strconv"

	"github.com/glorpus-work/apkpick/pkg/catalog"
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/hashicorp/go-version"
)

// NameMatcher decides whether a package name is wanted.
type NameMatcher interface {
	Match(name string) (bool, error)
}

// RecordSource yields catalog records until io.EOF. *catalog.Scanner satisfies it.
type RecordSource interface {
	Next() (catalog.Record, error)
}

// Stats counts what Reduce saw.
type Stats struct {
	Rows      int
	RowErrors int
	Matched   int
}

// Engine applies the match policy to records and folds hits into a Selection.
type Engine struct {
	Matcher NameMatcher
	// Constraint, when set, additionally restricts the normalized version code.
	Constraint version.Constraints
}

// ParseConstraint parses a version code constraint such as ">= 100, < 200".
// An empty string yields nil, meaning no restriction.
func ParseConstraint(raw string) (version.Constraints, error) {
	if raw == "" {
		return nil, nil
	}
	c, err := version.NewConstraint(raw)
	if err != nil {
		return nil, errors.Categorize(errors.ErrConfig, errors.Wrapf(err, "invalid version code constraint %q", raw))
	}
	return c, nil
}

// Apply tests rec and offers it to sel when it matches. The returned bool
// reports whether rec matched, regardless of whether it replaced an entry.
func (e *Engine) Apply(sel *Selection, rec catalog.Record) (bool, error) {
	ok, err := e.Matcher.Match(rec.PackageName)
	if err != nil || !ok {
		return false, err
	}
	if !e.allows(rec.Version()) {
		return false, nil
	}
	sel.Offer(rec)
	return true, nil
}

func (e *Engine) allows(code int64) bool {
	if len(e.Constraint) == 0 {
		return true
	}
	v, err := version.NewVersion(strconv.FormatInt(code, 10))
	if err != nil {
		return false
	}
	return e.Constraint.Check(v)
}

// Reduce drains src into sel. Row parse errors are handed to onRowError and
// scanning goes on; any other error ends the scan. onRowError may be nil.
func (e *Engine) Reduce(ctx context.Context, src RecordSource, sel *Selection, onRowError func(*catalog.RowParseError)) (Stats, error) {
	var stats Stats
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		rec, err := src.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			var rowErr *catalog.RowParseError
			if errors.As(err, &rowErr) {
				stats.Rows++
				stats.RowErrors++
				if onRowError != nil {
					onRowError(rowErr)
				}
				continue
			}
			return stats, err
		}
		stats.Rows++

		matched, err := e.Apply(sel, rec)
		if err != nil {
			return stats, err
		}
		if matched {
			stats.Matched++
		}
	}
}
