// Package testutil holds fixtures shared by the command tests.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// ArchiveServer imitates the archive's download endpoint: it serves bodies
// keyed by the sha256 query parameter to callers presenting the right api key.
type ArchiveServer struct {
	*httptest.Server
	mu       sync.Mutex
	bodies   map[string]string
	requests []string
}

// NewArchiveServer starts an ArchiveServer that is closed when the test ends.
func NewArchiveServer(t *testing.T, apiKey string, bodies map[string]string) *ArchiveServer {
	t.Helper()
	s := &ArchiveServer{bodies: bodies}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sha := r.URL.Query().Get("sha256")
		s.mu.Lock()
		s.requests = append(s.requests, sha)
		s.mu.Unlock()

		if r.URL.Query().Get("apikey") != apiKey {
			http.Error(w, "bad api key", http.StatusForbidden)
			return
		}
		body, ok := s.bodies[sha]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

// DownloadURL returns the endpoint to configure as settings.base_url.
func (s *ArchiveServer) DownloadURL() string {
	return s.URL + "/api/download"
}

// Requests returns the sha256 values requested so far, in order.
func (s *ArchiveServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Inputs are the files a select run reads.
type Inputs struct {
	Dir      string
	Packages string
	Catalog  string
	Output   string
}

// WriteInputs writes a packages file and a catalog into a fresh temp dir.
func WriteInputs(t *testing.T, packages, catalog string) Inputs {
	t.Helper()
	dir := t.TempDir()
	in := Inputs{
		Dir:      dir,
		Packages: filepath.Join(dir, "packages.yaml"),
		Catalog:  filepath.Join(dir, "latest.csv"),
		Output:   filepath.Join(dir, "out"),
	}
	writeFile(t, in.Packages, packages)
	writeFile(t, in.Catalog, catalog)
	return in
}

// SetupTestConfig writes a config file pointing at baseURL and returns its path.
// Extra lines are appended under settings.
func SetupTestConfig(t *testing.T, baseURL string, extra ...string) string {
	t.Helper()
	content := fmt.Sprintf("settings:\n  base_url: %s\n  log_level: debug\n", baseURL)
	for _, line := range extra {
		content += "  " + line + "\n"
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}
