package hooks

import (
	"os"
	"path/filepath"

	"github.com/glorpus-work/apkpick/pkg/errors"
)

// HookFileExtension is the extension expected on hook scripts.
const HookFileExtension = ".tengo"

// LoadScripts reads the script file configured for each hook type and adds it
// to manager. Empty paths are ignored.
func LoadScripts(manager HookManager, paths map[HookType]string) error {
	for hookType, path := range paths {
		if path == "" {
			continue
		}
		if !hookType.Valid() {
			return ErrUnsupportedHookType(hookType)
		}
		if ext := filepath.Ext(path); ext != HookFileExtension {
			return errors.Wrapf(errors.ErrHookLoad, "%s hook %s: expected a %s file", hookType, path, HookFileExtension)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(errors.Categorize(errors.ErrHookLoad, err), "error reading %s hook", hookType)
		}

		if err := manager.AddHook(Hook{Type: hookType, Content: string(content)}); err != nil {
			return errors.Wrapf(err, "error adding %s hook", hookType)
		}
	}
	return nil
}

// HookTemplate generates a template for a hook script.
func HookTemplate(hookType HookType) string {
	switch hookType {
	case PreFetch:
		return `// Pre-fetch hook
// This script runs before a selected package is downloaded
// Available variables:
// - packageName: string - name of the selected package
// - versionCode: int - highest version code found for it
// - sha256: string - hash of the artifact about to be fetched
// - skip: bool - set to true to leave this package undownloaded
// - err: string - set to a message to fail this package

// Example: skip test builds
/*
text := import("text")
if text.has_suffix(packageName, ".test") {
    skip = true
}
*/`

	case PostFetch:
		return `// Post-fetch hook
// This script runs after a package has been downloaded
// Available variables: same as pre-fetch hook, plus
// - artifactPath: string - path of the downloaded file

// Example: reject empty downloads
/*
os := import("os")
info := os.stat(artifactPath)
if info.size == 0 {
    err = "empty artifact: " + artifactPath
}
*/`

	default:
		return "// Unknown hook type: " + string(hookType)
	}
}
