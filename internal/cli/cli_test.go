package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glorpus-work/apkpick/internal/logger"
	"github.com/glorpus-work/apkpick/pkg/config"
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/test/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogCSV = `sha256,pkg_name,vercode
aaa,com.example.app,1
bbb,com.example.app,3
ccc,com.other.app,5
eee,com.example.lib,2
`

// execute runs the command tree against configPath with no api key in the
// environment and returns stdout and the log output.
func execute(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvAPIKeyFallback, "")
	return run(t, configPath, args...)
}

func run(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()

	verbose := false
	logFormat := ""
	ConfigPath, Verbose, LogFormat = &configPath, &verbose, &logFormat

	var logs bytes.Buffer
	logger.SetTestOutput(&logs)
	t.Cleanup(func() {
		ConfigPath, Verbose, LogFormat = nil, nil, nil
		logger.UnsetTestOutput()
		logger.ResetRunAttrs()
	})

	root := &cobra.Command{Use: "apkpick", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(NewSelectCmd(), NewConfigCmd(), NewHookCmd(), NewVersionCmd())

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), logs.String(), err
}

func TestSelect_ManifestOnly(t *testing.T) {
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	out, logs, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output)
	require.NoError(t, err)

	assert.Contains(t, out, "Scanned 4 rows (0 malformed), 3 matched, 2 packages selected")
	assert.Contains(t, out, filepath.Join(in.Output, "filtered.csv"))
	assert.Contains(t, logs, "run_id=")

	data, err := os.ReadFile(filepath.Join(in.Output, "filtered.csv"))
	require.NoError(t, err)
	assert.Equal(t, "pkg_name,vercode,sha256\ncom.example.app,3,bbb\ncom.example.lib,2,eee\n", string(data))
}

func TestSelect_Download(t *testing.T) {
	srv := testutil.NewArchiveServer(t, "k3y", map[string]string{"bbb": "app-v3", "eee": "lib-v2"})
	cfgPath := testutil.SetupTestConfig(t, srv.DownloadURL())
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)

	out, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output,
		"--download", "--api-key", "k3y")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 2, skipped 0, failed 0")
	assert.ElementsMatch(t, []string{"bbb", "eee"}, srv.Requests())

	data, err := os.ReadFile(filepath.Join(in.Output, "com.example.app.apk"))
	require.NoError(t, err)
	assert.Equal(t, "app-v3", string(data))
}

func TestSelect_DownloadKeyFromEnvironment(t *testing.T) {
	srv := testutil.NewArchiveServer(t, "env-key", map[string]string{"bbb": "app-v3"})
	cfgPath := testutil.SetupTestConfig(t, srv.DownloadURL())
	in := testutil.WriteInputs(t, "- com.example.app\n", catalogCSV)

	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvAPIKeyFallback, "env-key")
	_, _, err := run(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output, "-d")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(in.Output, "com.example.app.apk"))
	assert.Equal(t, []string{"bbb"}, srv.Requests())
}

func TestSelect_DownloadWithoutKey(t *testing.T) {
	srv := testutil.NewArchiveServer(t, "k3y", nil)
	cfgPath := testutil.SetupTestConfig(t, srv.DownloadURL())
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)
	require.NoError(t, os.Remove(in.Catalog), "the catalog must not be needed to report a missing key")

	_, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output, "--download")
	require.ErrorIs(t, err, errors.ErrMissingAPIKey)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.Empty(t, srv.Requests())
}

func TestSelect_FailedDownloads(t *testing.T) {
	srv := testutil.NewArchiveServer(t, "k3y", map[string]string{"eee": "lib-v2"})
	cfgPath := testutil.SetupTestConfig(t, srv.DownloadURL())
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)
	args := []string{"select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output, "-d", "--api-key", "k3y"}

	t.Run("fail fast", func(t *testing.T) {
		_, _, err := execute(t, cfgPath, args...)
		require.ErrorIs(t, err, errors.ErrHTTPStatus)
		assert.NoFileExists(t, filepath.Join(in.Output, "com.example.lib.apk"), "nothing after the failure is fetched")
	})

	t.Run("keep going", func(t *testing.T) {
		out, _, err := execute(t, cfgPath, append(args, "--keep-going")...)
		require.ErrorIs(t, err, errors.ErrDownloadsFailed)
		assert.Contains(t, out, "Downloaded 1, skipped 0, failed 1")
		assert.Contains(t, out, "com.example.app: ")
		assert.NotContains(t, out, "k3y", "the api key must not be printed")
		assert.FileExists(t, filepath.Join(in.Output, "com.example.lib.apk"))
	})
}

func TestSelect_PreFetchHook(t *testing.T) {
	srv := testutil.NewArchiveServer(t, "k3y", map[string]string{"bbb": "app-v3", "eee": "lib-v2"})
	hookPath := filepath.Join(t.TempDir(), "pre.tengo")
	require.NoError(t, os.WriteFile(hookPath, []byte(`skip = packageName == "com.example.lib"`), 0o600))
	cfgPath := testutil.SetupTestConfig(t, srv.DownloadURL(), "hooks:", "  pre_fetch: "+hookPath)
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)

	out, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output, "-d", "--api-key", "k3y")
	require.NoError(t, err)
	assert.Contains(t, out, "Downloaded 1, skipped 1, failed 0")
	assert.Equal(t, []string{"bbb"}, srv.Requests())
}

func TestSelect_BadHookPath(t *testing.T) {
	cfgPath := testutil.SetupTestConfig(t, "https://archive.example/api/download", "hooks:", "  post_fetch: /nonexistent/post.js")
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)

	_, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output)
	require.ErrorIs(t, err, errors.ErrHookLoad)
	assert.ErrorIs(t, err, errors.ErrConfig)
	assert.NoFileExists(t, filepath.Join(in.Output, "filtered.csv"))
}

func TestSelect_Flags(t *testing.T) {
	in := testutil.WriteInputs(t, "- com.example.*\n", catalogCSV)
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	t.Run("missing required flag", func(t *testing.T) {
		_, _, err := execute(t, cfgPath, "select", "-c", in.Catalog, "-o", in.Output)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "packages")
	})

	t.Run("output from config", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "from-config")
		cfg := testutil.SetupTestConfig(t, "https://archive.example/api/download", "output_dir: "+out)
		_, _, err := execute(t, cfg, "select", "-q", "-p", in.Packages, "-c", in.Catalog)
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(out, "filtered.csv"))
	})

	t.Run("missing output", func(t *testing.T) {
		_, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog)
		require.ErrorIs(t, err, errors.ErrMissingInput)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		_, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", in.Output, "--concurrency", "0")
		require.ErrorIs(t, err, errors.ErrConfig)
	})

	t.Run("version constraint", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "vc")
		_, _, err := execute(t, cfgPath, "select", "-q", "-p", in.Packages, "-c", in.Catalog, "-o", out, "--vercode", "< 3")
		require.NoError(t, err)
		data, err := os.ReadFile(filepath.Join(out, "filtered.csv"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "com.example.app,1,aaa")
	})
}

func TestConfigCommands(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "apkpick", "config.yaml")

	_, _, err := execute(t, cfgPath, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, cfgPath)

	_, _, err = execute(t, cfgPath, "config", "init")
	require.ErrorIs(t, err, errors.ErrConfigFileExists)
	_, _, err = execute(t, cfgPath, "config", "init", "--force")
	require.NoError(t, err)

	_, _, err = execute(t, cfgPath, "config", "set", "api_key", "s3cr3t")
	require.NoError(t, err)
	_, _, err = execute(t, cfgPath, "config", "set", "concurrency", "4")
	require.NoError(t, err)
	_, _, err = execute(t, cfgPath, "config", "set", "concurrency", "0")
	require.ErrorIs(t, err, errors.ErrConfigValidation)
	_, _, err = execute(t, cfgPath, "config", "set", "colour", "blue")
	require.ErrorIs(t, err, errors.ErrConfig)

	out, _, err := execute(t, cfgPath, "config", "get", "concurrency")
	require.NoError(t, err)
	assert.Equal(t, "4\n", out)

	out, _, err = execute(t, cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "SETTING")
	assert.Contains(t, out, "concurrency")
	assert.NotContains(t, out, "s3cr3t")
	assert.True(t, strings.Index(out, "api_key") < strings.Index(out, "log_level"), "settings are listed in a stable order")

	out, _, err = execute(t, cfgPath, "config", "show", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "settings:")
	assert.Contains(t, out, "concurrency: 4")
	assert.NotContains(t, out, "s3cr3t")
}

func TestHookTemplateCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")

	out, _, err := execute(t, cfgPath, "hook", "template", "pre-fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "Pre-fetch hook")

	_, _, err = execute(t, cfgPath, "hook", "template", "pre-install")
	require.ErrorIs(t, err, errors.ErrHookLoad)
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, filepath.Join(t.TempDir(), "absent.yaml"), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apkpick version "+Version)
}
