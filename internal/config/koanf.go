// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/watchrelay/config.yaml",
	"/etc/watchrelay/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// keyDelim separates koanf path segments. User keys are media server
// usernames and may contain dots.
const keyDelim = "::"

// LoadWithKoanf loads configuration using Koanf with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile loads configuration from defaults, the given YAML file (skipped
// when path is empty) and the environment, then validates it.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(keyDelim)

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", keyDelim, envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	cfg.normalizeUsers()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// normalizeUsers lowercases user keys to match webhook user keys and folds
// the legacy tracktv section into trakt. Blank keys match no webhook user
// and are dropped.
func (c *Config) normalizeUsers() {
	if len(c.Users) == 0 {
		return
	}
	users := make(map[string]UserConfig, len(c.Users))
	for key, u := range c.Users {
		if u.Trakt == nil && u.TrackTV != nil {
			u.Trakt = u.TrackTV
		}
		u.TrackTV = nil
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		users[key] = u
	}
	c.Users = users
}

// sliceConfigPaths maps config paths whose env values are split into
// slices to the splitter used.
var sliceConfigPaths = map[string]func(string) []string{
	"tvtime" + keyDelim + "token_command": strings.Fields,
}

// processSliceFields converts string values to slices for known slice fields.
// Env vars come in as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for path, split := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strings.TrimSpace(strVal) == "" {
			continue
		}
		if err := k.Set(path, split(strVal)); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Server mappings
	"http_host":           "server::host",
	"http_port":           "server::port",
	"http_timeout":        "server::timeout",
	"webhook_secret":      "server::webhook_secret",
	"webhook_max_body":    "server::max_body_bytes",
	"webhook_rate_limit":  "server::rate_limit_requests",
	"webhook_rate_window": "server::rate_limit_window",

	// Logging mappings
	"log_level":  "logging::level",
	"log_format": "logging::format",
	"log_caller": "logging::caller",

	// Retry mappings
	"retry_max_retries":    "retry::max_retries",
	"retry_initial_delay":  "retry::initial_delay",
	"retry_max_delay":      "retry::max_delay",
	"retry_backoff_factor": "retry::backoff_factor",
	"retry_jitter":         "retry::jitter",

	// Circuit breaker mappings
	"circuit_breaker_enabled":       "circuit_breaker::enabled",
	"circuit_breaker_timeout":       "circuit_breaker::timeout",
	"circuit_breaker_failure_ratio": "circuit_breaker::failure_ratio",

	// Trakt mappings
	"trakt_base_url":        "trakt::base_url",
	"trakt_authorize_url":   "trakt::authorize_url",
	"trakt_rate_limit":      "trakt::rate_limit_per_second",
	"trakt_request_timeout": "trakt::request_timeout",

	// TV Time mappings
	"tvtime_app_url":         "tvtime::app_url",
	"tvtime_auth_app_url":    "tvtime::auth_app_url",
	"tvtime_login_url":       "tvtime::login_url",
	"tvtime_jwt_token":       "tvtime::jwt_token",
	"tvtime_token_command":   "tvtime::token_command",
	"tvtime_token_attempts":  "tvtime::token_attempts",
	"tvtime_rate_limit":      "tvtime::rate_limit_per_second",
	"tvtime_request_timeout": "tvtime::request_timeout",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server::port
//   - LOG_LEVEL -> logging::level
//   - TRAKT_RATE_LIMIT -> trakt::rate_limit_per_second
//
// Unmapped variables return an empty key so that unrelated environment
// variables never pollute the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
