//go:generate mockgen -destination=./mocks/orchestrator.go . Downloader,HookRunner,CatalogOpener

package orchestrator

import (
	"context"
	"net/url"

	"github.com/glorpus-work/apkpick/pkg/catalog"
	"github.com/glorpus-work/apkpick/pkg/download"
	"github.com/glorpus-work/apkpick/pkg/hooks"
	"github.com/glorpus-work/apkpick/pkg/progress"
)

// Downloader handles artifact downloading.
type Downloader interface {
	FetchAll(ctx context.Context, items []download.Item, opts download.Options) (download.Result, error)
}

// HookRunner is the subset of the hook manager used by the orchestrator.
type HookRunner interface {
	HasHook(hookType hooks.HookType) bool
	Execute(ctx context.Context, hookType hooks.HookType, hc hooks.HookContext) (hooks.Outcome, error)
}

// Catalog is an open record stream with byte-level progress.
type Catalog interface {
	Next() (catalog.Record, error)
	BytesRead() int64
	Size() int64
	Close() error
}

// CatalogOpener opens the catalog named by a request.
type CatalogOpener interface {
	Open(ctx context.Context, path string) (Catalog, error)
}

// Orchestrator ties the scanner, the selection engine, the manifest writer and
// the download manager together.
type Orchestrator struct {
	Catalogs CatalogOpener // defaults to FileCatalogs
	DL       Downloader    // required only when downloading
	Hooks    HookRunner    // optional pre-fetch and post-fetch scripts

	// ScanProgress tracks catalog bytes, FetchProgress completed downloads.
	// Both default to progress.Nop().
	ScanProgress  progress.Reporter
	FetchProgress progress.Reporter
	Events        Events
}

// Event represents a simple progress notification.
type Event struct {
	Phase string // scanning|selected|manifest|skipped|downloaded|failed|done
	ID    string // package name, when the event concerns one package
	Msg   string
}

// Events carries callbacks for progress events.
type Events struct {
	OnEvent func(Event)
}

// Request describes one run.
type Request struct {
	RunID        string
	PatternsFile string
	CatalogFile  string
	OutputDir    string

	// VersionConstraint optionally restricts accepted version codes, e.g. ">= 100".
	VersionConstraint string
	// NoManifest skips writing filtered.csv.
	NoManifest bool

	Download    bool
	APIKey      string
	BaseURL     *url.URL
	Concurrency int
	// KeepGoing continues past failed packages and reports them at the end
	// instead of aborting on the first failure.
	KeepGoing bool
}

// Summary reports what a run did.
type Summary struct {
	RunID     string
	Rows      int
	RowErrors int
	Matched   int
	Selected  int

	ManifestPath string // empty when no manifest was written

	Skipped    int
	Downloaded int
	Failed     int
	// Paths maps each downloaded package to its file.
	Paths map[string]string
	// Failures maps each failed package to its error.
	Failures map[string]error
}

// FileCatalogs opens catalogs from the local file system.
type FileCatalogs struct{}

// Open implements CatalogOpener.
func (FileCatalogs) Open(ctx context.Context, path string) (Catalog, error) {
	s, err := catalog.OpenScanner(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}
