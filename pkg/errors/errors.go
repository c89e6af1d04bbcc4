package errors

import (
	stderrors "errors"
	"fmt"
)

// Common error types.
var (
	// Run-level categories. Every fatal error returned by the pipeline wraps one of these,
	// except context cancellation and errors raised by user hook scripts
	// (ErrHookExecution, ErrHookScript).
	ErrConfig     = fmt.Errorf("configuration error")
	ErrIO         = fmt.Errorf("i/o error")
	ErrRowParse   = fmt.Errorf("row parse error")
	ErrNetwork    = fmt.Errorf("network error")
	ErrHTTPStatus = fmt.Errorf("unexpected http status")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrMissingAPIKey     = fmt.Errorf("an api key is required when downloading")
	ErrMissingInput      = fmt.Errorf("required input is missing")

	// Pattern errors.
	ErrPatternFileParse = fmt.Errorf("pattern file must be a list of strings")
	ErrInvalidPattern   = fmt.Errorf("invalid glob pattern")

	// Catalog errors.
	ErrCatalogHeader      = fmt.Errorf("catalog has no header row")
	ErrUnsupportedCatalog = fmt.Errorf("unsupported catalog format")

	// Download errors.
	ErrDownloadFailed  = fmt.Errorf("download failed")
	ErrDownloadsFailed = fmt.Errorf("one or more downloads failed")

	// Hook errors.
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Categorize tags err with a run-level category while keeping it in the chain.
// It returns nil for a nil err.
func Categorize(category, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", category, err)
}

// ErrMissingInputWithName is a helper to create a wrapped error naming the missing input.
func ErrMissingInputWithName(name string) error {
	return fmt.Errorf("%w: %w: %s", ErrConfig, ErrMissingInput, name)
}

// ErrInvalidPatternWithDetails is a helper to create a wrapped error with the offending pattern.
func ErrInvalidPatternWithDetails(pattern string, cause error) error {
	return fmt.Errorf("%w: %w %q: %w", ErrConfig, ErrInvalidPattern, pattern, cause)
}

// ErrHTTPStatusWithCode is a helper to create a wrapped error carrying the status code.
func ErrHTTPStatusWithCode(code int) error {
	return fmt.Errorf("%w: %d", ErrHTTPStatus, code)
}
