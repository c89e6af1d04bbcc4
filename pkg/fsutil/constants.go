// Package fsutil provides file system helpers shared by the manifest writer, the artifact fetcher and the config store.
package fsutil

// File and directory permission constants.
const (
	FileModeDefault = 0o644 // -rw-r--r--
	FileModePrivate = 0o600 // -rw-------
	DirModeDefault  = 0o755 // drwxr-xr-x

	// TempPattern is the os.CreateTemp pattern for in-flight writes.
	TempPattern = ".apkpick-*.tmp"
)
