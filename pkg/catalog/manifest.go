package catalog

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/fsutil"
)

// ManifestName is the file name of the filtered manifest inside the output directory.
const ManifestName = "filtered.csv"

// WriteManifest writes records as a catalog with the pkg_name,vercode,sha256 header.
// An absent version code is written as an empty field.
func WriteManifest(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to write manifest header"))
	}
	for _, rec := range records {
		version := ""
		if rec.VersionCode != nil {
			version = strconv.FormatInt(*rec.VersionCode, 10)
		}
		if err := cw.Write([]string{rec.PackageName, version, rec.SHA256}); err != nil {
			return errors.Categorize(errors.ErrIO, errors.Wrapf(err, "failed to write manifest row for %s", rec.PackageName))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Categorize(errors.ErrIO, errors.Wrap(err, "failed to flush manifest"))
	}
	return nil
}

// WriteManifestFile writes the manifest to path, replacing any existing file.
func WriteManifestFile(path string, records []Record) error {
	err := fsutil.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteManifest(w, records)
	})
	if err != nil {
		if errors.Is(err, errors.ErrIO) {
			return err
		}
		return errors.Categorize(errors.ErrIO, errors.Wrapf(err, "failed to write manifest %s", path))
	}
	return nil
}
