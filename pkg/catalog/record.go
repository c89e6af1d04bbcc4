// Package catalog reads and writes AndroZoo-style application catalogs: CSV
// files whose header row names the pkg_name, vercode and sha256 columns.
package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/glorpus-work/apkpick/pkg/errors"
)

// Recognised column names.
const (
	ColumnPackageName = "pkg_name"
	ColumnVersionCode = "vercode"
	ColumnSHA256      = "sha256"
)

// Header is the column layout of a written manifest.
var Header = []string{ColumnPackageName, ColumnVersionCode, ColumnSHA256}

// Record is one application entry of a catalog.
type Record struct {
	PackageName string
	// VersionCode is nil when the catalog row leaves it empty.
	VersionCode *int64
	SHA256      string
}

// Version returns the version code with an absent value read as 0.
func (r Record) Version() int64 {
	if r.VersionCode == nil {
		return 0
	}
	return *r.VersionCode
}

// Normalized returns a copy whose VersionCode is always set.
func (r Record) Normalized() Record {
	v := r.Version()
	r.VersionCode = &v
	return r
}

func (r Record) String() string {
	if r.VersionCode == nil {
		return fmt.Sprintf("%s@- (%s)", r.PackageName, r.SHA256)
	}
	return fmt.Sprintf("%s@%d (%s)", r.PackageName, *r.VersionCode, r.SHA256)
}

// VersionCodeOf is a convenience for building records with a version.
func VersionCodeOf(v int64) *int64 {
	return &v
}

// RowParseError describes a data row that could not be turned into a Record.
// It is not fatal: scanning continues with the next row.
type RowParseError struct {
	Line  int
	Raw   []string
	Cause string
}

func (e *RowParseError) Error() string {
	if len(e.Raw) == 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Cause)
	}
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Cause, strings.Join(e.Raw, ","))
}

// Unwrap lets errors.Is(err, errors.ErrRowParse) match.
func (e *RowParseError) Unwrap() error {
	return errors.ErrRowParse
}

// parseVersionCode reads an optional non-negative integer.
func parseVersionCode(raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed %s %q", ColumnVersionCode, raw)
	}
	if v < 0 {
		return nil, fmt.Errorf("negative %s %d", ColumnVersionCode, v)
	}
	return &v, nil
}
