package fsutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove_File_SameFilesystem(t *testing.T) {
	tempDir := t.TempDir()

	srcFile := filepath.Join(tempDir, "source.apk")
	dstFile := filepath.Join(tempDir, "nested", "com.example.app.apk")

	require.NoError(t, os.WriteFile(srcFile, []byte("PK\x03\x04"), 0o644))
	require.NoError(t, Move(srcFile, dstFile))

	moved, err := os.ReadFile(dstFile)
	require.NoError(t, err)
	assert.Equal(t, "PK\x03\x04", string(moved))

	_, err = os.Stat(srcFile)
	assert.True(t, os.IsNotExist(err))
}

func TestMove_Errors(t *testing.T) {
	tempDir := t.TempDir()

	err := Move("", filepath.Join(tempDir, "dst"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	err = Move(filepath.Join(tempDir, "missing"), filepath.Join(tempDir, "dst"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stat source")

	err = Move(tempDir, filepath.Join(tempDir, "dst"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot move directory")
}

func TestIsCrossFilesystemError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "exdev link error", err: &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}, want: true},
		{name: "other link error", err: &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.ENOENT}, want: false},
		{name: "message", err: errors.New("invalid cross-device link"), want: true},
		{name: "unrelated", err: errors.New("permission denied"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isCrossFilesystemError(tt.err))
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	t.Run("creates and replaces", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out", "filtered.csv")

		require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "first")
			return err
		}))
		require.NoError(t, WriteFileAtomic(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "second")
			return err
		}))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "second", string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files must not be left behind")
	})

	t.Run("writer error leaves target untouched", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "filtered.csv")
		require.NoError(t, os.WriteFile(path, []byte("keep"), 0o644))

		boom := errors.New("boom")
		err := WriteFileAtomic(path, func(w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return boom
		})
		require.ErrorIs(t, err, boom)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "keep", string(data))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestWriteFileAtomicMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteFileAtomicMode(path, FileModePrivate, func(w io.Writer) error {
		_, err := io.WriteString(w, "secret")
		return err
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileModePrivate), info.Mode().Perm())
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, Copy(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	assert.Error(t, Copy(filepath.Join(dir, "missing"), dst))
}
