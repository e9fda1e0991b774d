// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
server:
  port: 8080
  webhook_secret: hush
logging:
  level: debug
trakt:
  rate_limit_per_second: 2
users:
  Alice:
    trakt:
      client_id: cid
      client_secret: csecret
      code: abc123
      redirect_uri: urn:ietf:wg:oauth:2.0:oob
    tvtime:
      username: alice@example.com
      password: pw
  john.doe:
    tracktv:
      client_id: cid2
      client_secret: csecret2
      redirect_uri: urn:ietf:wg:oauth:2.0:oob
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 8080 || cfg.Server.WebhookSecret != "hush" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("default host lost, got %q", cfg.Server.Host)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Trakt.RateLimitPerSecond != 2 {
		t.Errorf("Trakt.RateLimitPerSecond = %v", cfg.Trakt.RateLimitPerSecond)
	}

	alice, ok := cfg.Users["alice"]
	if !ok {
		t.Fatalf("user keys should be lowercased, got %v", cfg.UserKeys())
	}
	if alice.Trakt == nil || alice.Trakt.Code != "abc123" {
		t.Errorf("alice.Trakt = %+v", alice.Trakt)
	}
	if alice.TVTime == nil || alice.TVTime.Username != "alice@example.com" {
		t.Errorf("alice.TVTime = %+v", alice.TVTime)
	}

	john, ok := cfg.Users["john.doe"]
	if !ok {
		t.Fatalf("dotted user key should survive, got %v", cfg.UserKeys())
	}
	if john.Trakt == nil || john.Trakt.ClientID != "cid2" {
		t.Errorf("tracktv alias should fold into trakt, got %+v", john.Trakt)
	}
	if john.TrackTV != nil {
		t.Error("TrackTV should be cleared after folding")
	}
}

func TestLoadFile_UserKeyWithSpaces(t *testing.T) {
	body := `
users:
  John Smith:
    trakt:
      client_id: cid
      client_secret: csecret
      redirect_uri: urn:ietf:wg:oauth:2.0:oob
  alice:
    tvtime:
      username: alice@example.com
      password: pw
`
	cfg, err := LoadFile(writeConfig(t, body))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	john, ok := cfg.Users["john smith"]
	if !ok {
		t.Fatalf("expected user %q, got %v", "john smith", cfg.UserKeys())
	}
	if john.Trakt == nil || john.Trakt.ClientID != "cid" {
		t.Errorf("john smith.Trakt = %+v", john.Trakt)
	}
	if _, ok := cfg.Users["alice"]; !ok {
		t.Errorf("alice should load alongside, got %v", cfg.UserKeys())
	}
}

func TestNormalizeUsers_DropsBlankKeys(t *testing.T) {
	cfg := &Config{Users: map[string]UserConfig{"  ": {}, "Bob": {}}}
	cfg.normalizeUsers()

	if len(cfg.Users) != 1 {
		t.Fatalf("users = %v, want only bob", cfg.UserKeys())
	}
	if _, ok := cfg.Users["bob"]; !ok {
		t.Errorf("users = %v, want bob", cfg.UserKeys())
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("TVTIME_TOKEN_COMMAND", "node /opt/tvtime-token.js --headless")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadFile(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Retry.InitialDelay != 250*time.Millisecond {
		t.Errorf("Retry.InitialDelay = %v", cfg.Retry.InitialDelay)
	}
	cmd := cfg.TVTime.TokenCommand
	if len(cmd) != 3 || cmd[0] != "node" || cmd[2] != "--headless" {
		t.Errorf("TokenCommand = %q", cmd)
	}
}

func TestLoadFile_NoFile(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile(\"\") error = %v", err)
	}
	if cfg.HasUsers() {
		t.Error("expected no users without a config file")
	}
}

func TestLoadFile_InvalidValue(t *testing.T) {
	if _, err := LoadFile(writeConfig(t, "logging:\n  level: shouting\n")); err == nil {
		t.Error("expected validation error for bad log level")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"HTTP_PORT", "server::port"},
		{"TRAKT_RATE_LIMIT", "trakt::rate_limit_per_second"},
		{"tvtime_jwt_token", "tvtime::jwt_token"},
		{"PATH", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFindConfigFile_EnvVar(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 1234\n")
	t.Setenv(ConfigPathEnvVar, path)

	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}
