package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/glorpus-work/apkpick/internal/logger"
	"github.com/glorpus-work/apkpick/pkg/config"
	"github.com/google/uuid"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
	LogFormat  *string
)

// loadConfig loads the configuration file, fills the api key from the
// environment and applies the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(getConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.ApplyEnv(os.Getenv)

	if LogFormat != nil && *LogFormat != "" {
		cfg.Settings.LogFormat = strings.ToLower(*LogFormat)
	}
	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// initLogging configures the logger from cfg and tags every line with a fresh run id.
func initLogging(cfg *config.Config) string {
	runID := uuid.NewString()
	logger.ResetRunAttrs()
	logger.InitLogger(cfg.Settings.LogLevel, logger.OutputFormat(strings.ToLower(cfg.Settings.LogFormat)))
	logger.WithRunAttrs("run_id", runID)
	return runID
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		// An empty path makes LoadConfig and SaveConfig fail with a descriptive error
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err})
		return ""
	}
	return defaultPath
}
