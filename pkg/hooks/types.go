package hooks

import "context"

// HookType represents the point in a fetch at which a hook runs.
type HookType string

// Supported hook types.
const (
	PreFetch  HookType = "pre-fetch"
	PostFetch HookType = "post-fetch"
)

// Hook represents a hook script with its type and content.
type Hook struct {
	Type    HookType
	Content string
}

// HookContext contains information passed to hooks.
type HookContext struct {
	PackageName  string
	VersionCode  int64
	SHA256       string
	ArtifactPath string // empty for pre-fetch hooks
	Vars         map[string]interface{}
}

// Outcome is what a hook script asked for.
type Outcome struct {
	// Skip is set by a pre-fetch script to leave the package undownloaded.
	Skip bool
}

// HookManager defines the interface for managing hooks.
type HookManager interface {
	// Execute runs the specified hook type with the given context
	Execute(ctx context.Context, hookType HookType, hc HookContext) (Outcome, error)

	// AddHook adds a new hook
	AddHook(hook Hook) error

	// RemoveHook removes a hook of the specified type
	RemoveHook(hookType HookType) error

	// HasHook checks if a hook of the specified type exists
	HasHook(hookType HookType) bool
}

// Valid reports whether t is a known hook type.
func (t HookType) Valid() bool {
	return t == PreFetch || t == PostFetch
}
