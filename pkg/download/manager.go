package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/fsutil"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "apkpick/1.0"

// Query parameters understood by the archive's download endpoint.
const (
	ParamAPIKey = "apikey"
	ParamSHA256 = "sha256"
)

// ArtifactURL returns base with the api key and content hash set as query parameters.
func ArtifactURL(base *url.URL, apiKey, sha256 string) *url.URL {
	u := *base
	q := u.Query()
	q.Set(ParamAPIKey, apiKey)
	q.Set(ParamSHA256, sha256)
	u.RawQuery = q.Encode()
	return &u
}

// Redact returns u as a string with the api key hidden.
func Redact(u *url.URL) string {
	if u == nil {
		return ""
	}
	c := *u
	q := c.Query()
	if q.Has(ParamAPIKey) {
		q.Set(ParamAPIKey, "REDACTED")
		c.RawQuery = q.Encode()
	}
	return c.String()
}

// ArtifactFilename is the on-disk name of a package's artifact.
func ArtifactFilename(packageName string) string {
	return packageName + ".apk"
}

// ManagerImpl is an HTTP download manager that streams response bodies to disk.
type ManagerImpl struct {
	client    *http.Client
	userAgent string
}

// NewManager creates a new download manager with the given timeout and user agent.
// A zero timeout disables the client timeout.
func NewManager(timeout time.Duration, userAgent string) *ManagerImpl {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &ManagerImpl{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch downloads a single item and returns the path to the downloaded file.
func (m *ManagerImpl) Fetch(ctx context.Context, item Item, opts Options) (string, error) {
	if err := prepareDir(opts.Dir); err != nil {
		return "", err
	}
	return m.fetchOne(ctx, item, opts)
}

// FetchAll downloads items with a bounded worker pool. Without KeepGoing the
// first failure cancels the remaining work and is returned as is.
func (m *ManagerImpl) FetchAll(ctx context.Context, items []Item, opts Options) (Result, error) {
	res := Result{Paths: make(map[string]string), Failed: make(map[string]error)}
	if err := prepareDir(opts.Dir); err != nil {
		return res, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	tasks := make(chan Item)

	for w := 0; w < opts.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if ctx.Err() != nil {
					continue
				}
				path, err := m.fetchOne(ctx, item, opts)

				mu.Lock()
				if err != nil && firstErr != nil && !opts.KeepGoing && errors.Is(err, context.Canceled) {
					// Aborted by an earlier failure, not a failure of its own.
					mu.Unlock()
					continue
				}
				if err != nil {
					res.Failed[item.ID] = err
					if firstErr == nil {
						firstErr = err
					}
					if !opts.KeepGoing {
						cancel()
					}
				} else {
					res.Paths[item.ID] = path
				}
				if opts.OnDone != nil {
					opts.OnDone(item, path, err)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, item := range items {
		select {
		case tasks <- item:
		case <-ctx.Done():
			break feed
		}
	}
	close(tasks)
	wg.Wait()

	switch {
	case firstErr != nil && !opts.KeepGoing:
		return res, firstErr
	case len(res.Failed) > 0:
		return res, fmt.Errorf("%w: %d of %d: %w", errors.ErrDownloadsFailed, len(res.Failed), len(items), firstErr)
	case ctx.Err() != nil && len(res.Paths) < len(items):
		// Parent context cancelled before every item ran.
		return res, ctx.Err()
	}
	return res, nil
}

func prepareDir(dir string) error {
	if dir == "" {
		return errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrMissingInput, "download dir"))
	}
	if err := fsutil.EnsureDir(dir); err != nil {
		return errors.Categorize(errors.ErrIO, errors.Wrap(err, "could not create download dir"))
	}
	return nil
}

func (m *ManagerImpl) fetchOne(ctx context.Context, item Item, opts Options) (string, error) {
	if item.URL == nil {
		return "", fmt.Errorf("%w: %s: nil URL", errors.ErrDownloadFailed, item.ID)
	}
	filename := item.Filename
	if filename == "" {
		filename = ArtifactFilename(item.ID)
	}
	// Names come from catalog data and must not leave the output directory.
	if !filepath.IsLocal(filename) || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: %s: %w", errors.ErrDownloadFailed, item.ID,
			errors.Categorize(errors.ErrIO, fmt.Errorf("unsafe artifact filename %q", filename)))
	}
	absPath := filepath.Join(opts.Dir, filename)

	resp, err := m.doRequest(ctx, item)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", errors.ErrDownloadFailed, item.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	err = fsutil.WriteFileAtomic(absPath, func(w io.Writer) error {
		_, err := io.Copy(w, &bodyReader{r: resp.Body})
		return err
	})
	if err != nil {
		if !errors.Is(err, errors.ErrNetwork) {
			err = errors.Categorize(errors.ErrIO, err)
		}
		return "", fmt.Errorf("%w: %s: %w", errors.ErrDownloadFailed, item.ID, err)
	}
	return absPath, nil
}

func (m *ManagerImpl) doRequest(ctx context.Context, item Item) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.URL.String(), http.NoBody)
	if err != nil {
		return nil, errors.Categorize(errors.ErrNetwork, errors.Wrapf(err, "failed to create request for %s", Redact(item.URL)))
	}
	req.Header.Set("User-Agent", m.userAgent)

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, errors.Categorize(errors.ErrNetwork, redactURLError(err, item.URL))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, errors.ErrHTTPStatusWithCode(resp.StatusCode)
	}
	return resp, nil
}

// redactURLError keeps the api key out of *url.Error messages.
func redactURLError(err error, u *url.URL) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = Redact(u)
	}
	return err
}

// bodyReader tags read failures as network errors so they can be told apart
// from local write failures.
type bodyReader struct {
	r io.Reader
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		return n, errors.Categorize(errors.ErrNetwork, errors.Wrap(err, "failed to read response body"))
	}
	return n, err
}
