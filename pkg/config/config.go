// Package config provides configuration management for apkpick.
// It loads settings from a YAML file, fills the api key from the environment and
// validates the result. A missing file yields the defaults.
package config

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/apkpick/internal/logger"
	"github.com/glorpus-work/apkpick/pkg/errors"
	"github.com/glorpus-work/apkpick/pkg/fsutil"
	"github.com/glorpus-work/apkpick/pkg/selection"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Archive settings
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent,omitempty"`

	// Output settings
	OutputDir string `yaml:"output_dir,omitempty"`

	// Network settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Concurrency int           `yaml:"concurrency"`
	KeepGoing   bool          `yaml:"keep_going"`

	// Selection settings
	VersionConstraint string `yaml:"version_constraint,omitempty"`

	// Logging settings
	LogLevel  string `yaml:"log_level"`  // debug, info, warn, error
	LogFormat string `yaml:"log_format"` // text, json

	Hooks HookPaths `yaml:"hooks,omitempty"`
}

// HookPaths names the tengo scripts run around each download.
type HookPaths struct {
	PreFetch  string `yaml:"pre_fetch,omitempty"`
	PostFetch string `yaml:"post_fetch,omitempty"`
}

// Default configuration values.
const (
	// DefaultBaseURL is the AndroZoo download endpoint.
	DefaultBaseURL = "https://androzoo.uni.lu/api/download"

	// DefaultHTTPTimeout bounds a single artifact request, body included.
	DefaultHTTPTimeout = 10 * time.Minute

	// DefaultConcurrency keeps downloads sequential.
	DefaultConcurrency = 1

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2

	// EnvAPIKey and EnvAPIKeyFallback are consulted, in order, when no api key is configured.
	EnvAPIKey         = "APKPICK_API_KEY"
	EnvAPIKeyFallback = "ANDROZOO_API_KEY"

	maskedValue = "********"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Settings: Settings{
			BaseURL:     DefaultBaseURL,
			HTTPTimeout: DefaultHTTPTimeout,
			Concurrency: DefaultConcurrency,
			LogLevel:    "info",
			LogFormat:   string(logger.FormatText),
		},
	}
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.Categorize(errors.ErrConfig, errors.ErrEmptyConfigPath)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrInvalidConfigPath, err.Error()))
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Categorize(errors.ErrConfig, errors.Wrapf(err, "failed to open config file: %s", path))
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Categorize(errors.ErrConfig, errors.Wrap(err, "failed to read config data"))
	}

	config := DefaultConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrConfigParse, err.Error()))
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves configuration to a file. The file is written atomically and
// is readable by the owner only, since it may hold the api key.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.Categorize(errors.ErrConfig, errors.ErrEmptyConfigPath)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrInvalidConfigPath, err.Error()))
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Categorize(errors.ErrIO, errors.Wrap(errors.ErrConfigDirectory, err.Error()))
	}

	err = fsutil.WriteFileAtomicMode(absPath, fsutil.FileModePrivate, func(w io.Writer) error {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(YAMLIndent)
		if err := encoder.Encode(c); err != nil {
			return errors.Wrap(errors.ErrConfigEncode, err.Error())
		}
		return encoder.Close()
	})
	if err != nil {
		return errors.Categorize(errors.ErrIO, errors.Wrap(errors.ErrConfigFileCreate, err.Error()))
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return buf.Bytes(), nil
}

// Masked returns a copy of the config that is safe to print.
func (c *Config) Masked() *Config {
	masked := *c
	if masked.Settings.APIKey != "" {
		masked.Settings.APIKey = maskedValue
	}
	return &masked
}

// ApplyEnv fills the api key from the environment when none is configured.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Settings.APIKey != "" {
		return
	}
	for _, name := range []string{EnvAPIKey, EnvAPIKeyFallback} {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			c.Settings.APIKey = v
			return
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Categorize(errors.ErrConfig, errors.ErrConfigValidation)
	}
	if err := validateSettings(c.Settings); err != nil {
		return errors.Categorize(errors.ErrConfig, errors.Wrap(errors.ErrConfigValidation, err.Error()))
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout cannot be negative")
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	switch strings.ToLower(s.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log_level %q (must be debug, info, warn or error)", s.LogLevel)
	}
	switch logger.OutputFormat(strings.ToLower(s.LogFormat)) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (must be text or json)", s.LogFormat)
	}
	if err := validateBaseURL(s.BaseURL); err != nil {
		return err
	}
	if _, err := selection.ParseConstraint(s.VersionConstraint); err != nil {
		return err
	}
	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base_url %q: missing host", raw)
	}
	return nil
}

// BaseURL returns the parsed download endpoint.
func (c *Config) BaseURL() (*url.URL, error) {
	if err := validateBaseURL(c.Settings.BaseURL); err != nil {
		return nil, errors.Categorize(errors.ErrConfig, err)
	}
	u, _ := url.Parse(c.Settings.BaseURL)
	return u, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "apkpick", "config.yaml"), nil
}

// applyDefaults fills in values a file left blank.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.BaseURL == "" {
		c.Settings.BaseURL = defaults.Settings.BaseURL
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.Concurrency == 0 {
		c.Settings.Concurrency = defaults.Settings.Concurrency
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	if c.Settings.LogFormat == "" {
		c.Settings.LogFormat = defaults.Settings.LogFormat
	}
}
