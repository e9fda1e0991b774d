// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package config

import (
	"sort"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server         ServerConfig          `koanf:"server"`
	Logging        LoggingConfig         `koanf:"logging"`
	Retry          RetryConfig           `koanf:"retry"`
	CircuitBreaker CircuitBreakerConfig  `koanf:"circuit_breaker"`
	Trakt          TraktConfig           `koanf:"trakt"`
	TVTime         TVTimeConfig          `koanf:"tvtime"`
	Users          map[string]UserConfig `koanf:"users"`
}

// ServerConfig holds inbound HTTP settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// WebhookSecret enables X-Plex-Signature verification when set.
	WebhookSecret string `koanf:"webhook_secret"`

	// MaxBodyBytes caps inbound webhook bodies. Plex sends a thumbnail
	// alongside the payload, so this must leave room for it.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"gt=0"`

	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console text auto"`
	Caller bool   `koanf:"caller"`
}

// RetryConfig configures back-off for transient tracking service failures.
type RetryConfig struct {
	MaxRetries    int           `koanf:"max_retries" validate:"min=0,max=10"`
	InitialDelay  time.Duration `koanf:"initial_delay" validate:"gt=0"`
	MaxDelay      time.Duration `koanf:"max_delay" validate:"gtefield=InitialDelay"`
	BackoffFactor float64       `koanf:"backoff_factor" validate:"gte=1"`
	Jitter        float64       `koanf:"jitter" validate:"gte=0,lte=1"`
}

// CircuitBreakerConfig configures the per-client circuit breaker.
type CircuitBreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests" validate:"gt=0"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout" validate:"gt=0"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gt=0,lte=1"`
	MinRequests  uint32        `koanf:"min_requests" validate:"gt=0"`
}

// TraktConfig holds Trakt API settings shared by every user.
type TraktConfig struct {
	BaseURL      string `koanf:"base_url" validate:"url"`
	AuthorizeURL string `koanf:"authorize_url" validate:"url"`

	// RateLimitPerSecond paces outbound calls. Zero disables pacing.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second" validate:"gte=0"`

	ConnectTimeout time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

// TVTimeConfig holds TV Time settings shared by every user.
type TVTimeConfig struct {
	// AppURL hosts the sidecar proxy used for tracking and search.
	AppURL string `koanf:"app_url" validate:"url"`
	// AuthAppURL hosts the sidecar proxy used for login.
	AuthAppURL string `koanf:"auth_app_url" validate:"url"`
	// LoginURL is the upstream login endpoint behind the sidecar.
	LoginURL string `koanf:"login_url" validate:"url"`

	// JWTToken is a pre-obtained anonymous app token. When empty, TokenCommand
	// is run to obtain one.
	JWTToken string `koanf:"jwt_token"`

	// TokenCommand prints the anonymous app token on stdout, typically a
	// headless browser script that reads it from the app's local storage.
	TokenCommand  []string      `koanf:"token_command"`
	TokenAttempts int           `koanf:"token_attempts" validate:"min=1,max=10"`
	TokenDelay    time.Duration `koanf:"token_delay"`
	TokenStep     time.Duration `koanf:"token_step"`

	RateLimitPerSecond float64       `koanf:"rate_limit_per_second" validate:"gte=0"`
	ConnectTimeout     time.Duration `koanf:"connect_timeout" validate:"gt=0"`
	RequestTimeout     time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

// UserConfig holds one media server user's tracking service credentials.
type UserConfig struct {
	Trakt  *TraktCredentials  `koanf:"trakt"`
	TVTime *TVTimeCredentials `koanf:"tvtime"`

	// TrackTV is the legacy name of Trakt, folded into it on load.
	TrackTV *TraktCredentials `koanf:"tracktv"`
}

// TraktCredentials authorize one Trakt account.
type TraktCredentials struct {
	ClientID     string `koanf:"client_id" validate:"required"`
	ClientSecret string `koanf:"client_secret" validate:"required"`
	Code         string `koanf:"code"`
	RedirectURI  string `koanf:"redirect_uri" validate:"required"`

	// RefreshToken bootstraps the session without a code exchange.
	RefreshToken string `koanf:"refresh_token"`
}

// TVTimeCredentials authorize one TV Time account.
type TVTimeCredentials struct {
	Username string `koanf:"username" validate:"required"`
	Password string `koanf:"password" validate:"required"`

	// JWTToken overrides tvtime.jwt_token for this user.
	JWTToken string `koanf:"jwt_token"`
}

// ServiceNames lists the services configured for the user, in dispatch order.
func (u UserConfig) ServiceNames() []string {
	var names []string
	if u.Trakt != nil {
		names = append(names, "trakt")
	}
	if u.TVTime != nil {
		names = append(names, "tvtime")
	}
	return names
}

// UserKeys returns configured user keys in sorted order.
func (c *Config) UserKeys() []string {
	keys := make([]string, 0, len(c.Users))
	for k := range c.Users {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              5000,
			Timeout:           30 * time.Second,
			MaxBodyBytes:      10 << 20, // 10 MiB
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Retry: RetryConfig{
			MaxRetries:    3,
			InitialDelay:  time.Second,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2,
			Jitter:        0.1,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:      true,
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      2 * time.Minute,
			FailureRatio: 0.6,
			MinRequests:  10,
		},
		Trakt: TraktConfig{
			BaseURL:            "https://api.trakt.tv",
			AuthorizeURL:       "https://trakt.tv/oauth/authorize",
			RateLimitPerSecond: 1,
			ConnectTimeout:     5 * time.Second,
			RequestTimeout:     10 * time.Second,
		},
		TVTime: TVTimeConfig{
			AppURL:             "https://app.tvtime.com",
			AuthAppURL:         "https://beta-app.tvtime.com",
			LoginURL:           "https://auth.tvtime.com/v1/login",
			TokenAttempts:      3,
			TokenDelay:         5 * time.Second,
			TokenStep:          2 * time.Second,
			RateLimitPerSecond: 0,
			ConnectTimeout:     5 * time.Second,
			RequestTimeout:     10 * time.Second,
		},
	}
}

// Default returns the built-in defaults without reading any source.
func Default() *Config {
	return defaultConfig()
}
