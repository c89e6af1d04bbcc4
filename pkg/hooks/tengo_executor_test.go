package hooks_test

import (
	"context"
	"testing"

	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/hooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTengoExecutor(t *testing.T) {
	executor := hooks.NewTengoExecutor()
	hc := hooks.HookContext{
		PackageName:  "com.example.app",
		VersionCode:  42,
		SHA256:       "abc",
		ArtifactPath: "/out/com.example.app.apk",
		Vars: map[string]interface{}{
			"customVar": "customValue",
		},
	}

	t.Run("Execute empty script", func(t *testing.T) {
		executor.AddScript(hooks.PreFetch, `// This is a valid script that does nothing`)

		out, err := executor.Execute(context.Background(), hooks.PreFetch, hc)
		require.NoError(t, err)
		assert.False(t, out.Skip)
	})

	t.Run("Execute script with runtime error", func(t *testing.T) {
		executor.AddScript(hooks.PostFetch, `non_existent_function()`)

		_, err := executor.Execute(context.Background(), hooks.PostFetch, hc)
		require.ErrorIs(t, err, errors.ErrHookExecution)
		assert.Contains(t, err.Error(), "post-fetch")
	})

	t.Run("Execute non-existent script", func(t *testing.T) {
		out, err := executor.Execute(context.Background(), "non-existent-hook", hc)
		require.NoError(t, err)
		assert.False(t, out.Skip)
	})

	t.Run("HasScript check", func(t *testing.T) {
		hookType := hooks.HookType("test-hook")
		assert.False(t, executor.HasScript(hookType))

		executor.AddScript(hookType, "// test script")
		assert.True(t, executor.HasScript(hookType))

		executor.RemoveScript(hookType)
		assert.False(t, executor.HasScript(hookType))
	})

	t.Run("Context variables are accessible", func(t *testing.T) {
		executor.AddScript(hooks.PreFetch, `
			if packageName != "com.example.app" || versionCode != 42 || sha256 != "abc" || customVar != "customValue" {
				err = "unexpected context"
			}
		`)

		_, err := executor.Execute(context.Background(), hooks.PreFetch, hc)
		assert.NoError(t, err)
	})

	t.Run("Script sets err", func(t *testing.T) {
		executor.AddScript(hooks.PostFetch, `err = "rejected " + artifactPath`)

		_, err := executor.Execute(context.Background(), hooks.PostFetch, hc)
		require.ErrorIs(t, err, errors.ErrHookScript)
		assert.Contains(t, err.Error(), "rejected /out/com.example.app.apk")
	})

	t.Run("Script sets skip", func(t *testing.T) {
		executor.AddScript(hooks.PreFetch, `
			text := import("text")
			if text.has_prefix(packageName, "com.example.") {
				skip = true
			}
		`)

		out, err := executor.Execute(context.Background(), hooks.PreFetch, hc)
		require.NoError(t, err)
		assert.True(t, out.Skip)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		executor.AddScript(hooks.PreFetch, `for { }`)

		_, err := executor.Execute(ctx, hooks.PreFetch, hc)
		require.ErrorIs(t, err, errors.ErrHookExecution)
	})
}
