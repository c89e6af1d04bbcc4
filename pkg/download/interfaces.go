//go:generate mockgen -destination=mocks/download.go . Manager

package download

import (
	"context"
	"net/url"
)

// Manager downloads artifacts into a local directory.
type Manager interface {
	// FetchAll downloads all items, respecting Options (concurrency, fail-fast or keep-going).
	FetchAll(ctx context.Context, items []Item, opts Options) (Result, error)

	// Fetch downloads a single item into opts.Dir and returns the local file path.
	Fetch(ctx context.Context, item Item, opts Options) (string, error)
}

// Item represents one remote artifact to download.
type Item struct {
	ID       string   // package name; unique within a batch
	URL      *url.URL // source URL, may carry credentials in its query
	Filename string   // file name inside Options.Dir
}

// Options control the behavior of the download manager.
type Options struct {
	Dir         string // destination directory
	Concurrency int    // number of parallel downloads; <= 0 means 1
	// KeepGoing continues past failed items instead of aborting the batch.
	// FetchAll still returns ErrDownloadsFailed when anything failed.
	KeepGoing bool
	// OnDone, if set, is called after each item finishes. It may be called
	// from several goroutines when Concurrency > 1, but never concurrently.
	OnDone func(item Item, path string, err error)
}

// Result reports the outcome of a batch.
type Result struct {
	Paths  map[string]string // item ID -> local path, successful items only
	Failed map[string]error  // item ID -> error, failed items only
}
