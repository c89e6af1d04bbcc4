package config

import (
	"fmt"
	"strconv"
	"time"
)

// Keys lists the settings addressable by SetValue and GetValue, in display order.
var Keys = []string{
	"api_key",
	"base_url",
	"user_agent",
	"output_dir",
	"http_timeout",
	"concurrency",
	"keep_going",
	"version_constraint",
	"log_level",
	"log_format",
	"hooks.pre_fetch",
	"hooks.post_fetch",
}

// SetValue sets a configuration value by key. The result is not validated;
// callers run Validate before saving.
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "api_key":
		s.APIKey = value
	case "base_url":
		s.BaseURL = value
	case "user_agent":
		s.UserAgent = value
	case "output_dir":
		s.OutputDir = value
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		s.HTTPTimeout = d
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		s.Concurrency = n
	case "keep_going":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		s.KeepGoing = b
	case "version_constraint":
		s.VersionConstraint = value
	case "log_level":
		s.LogLevel = value
	case "log_format":
		s.LogFormat = value
	case "hooks.pre_fetch":
		s.Hooks.PreFetch = value
	case "hooks.post_fetch":
		s.Hooks.PostFetch = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// GetValue returns the value of key as a string.
func (c *Config) GetValue(key string) (string, error) {
	s := c.Settings
	switch key {
	case "api_key":
		return s.APIKey, nil
	case "base_url":
		return s.BaseURL, nil
	case "user_agent":
		return s.UserAgent, nil
	case "output_dir":
		return s.OutputDir, nil
	case "http_timeout":
		return s.HTTPTimeout.String(), nil
	case "concurrency":
		return strconv.Itoa(s.Concurrency), nil
	case "keep_going":
		return strconv.FormatBool(s.KeepGoing), nil
	case "version_constraint":
		return s.VersionConstraint, nil
	case "log_level":
		return s.LogLevel, nil
	case "log_format":
		return s.LogFormat, nil
	case "hooks.pre_fetch":
		return s.Hooks.PreFetch, nil
	case "hooks.post_fetch":
		return s.Hooks.PostFetch, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// ToMap flattens the settings into key/value pairs for display.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string, len(Keys))
	for _, key := range Keys {
		value, _ := c.GetValue(key)
		result[key] = value
	}
	return result
}
