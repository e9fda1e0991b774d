// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package logging

import (
	"context"
	"strings"
)

// AuthEvent describes a credential lifecycle transition of a tracking
// service session. Secrets are never logged in full.
type AuthEvent struct {
	// Event is the transition name: login, refresh, login_failed, session_failed.
	Event   string
	Service string
	User    string
	Token   string
	Success bool
	Err     error
	// Hint is a human-actionable remedy, e.g. an authorization URL.
	Hint string
}

// LogAuthEvent writes an AuthEvent at info level on success and error level
// otherwise.
func LogAuthEvent(ctx context.Context, ev AuthEvent) {
	logger := Ctx(ctx)
	e := logger.Info()
	if !ev.Success {
		e = logger.Error()
	}

	e = e.Str("auth_event", ev.Event).
		Str("service", ev.Service).
		Str("user", ev.User).
		Bool("success", ev.Success)
	if ev.Token != "" {
		e = e.Str("token", MaskSecret(ev.Token))
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	if ev.Hint != "" {
		e = e.Str("hint", ev.Hint)
	}
	e.Msg("Tracking service authentication")
}

// MaskSecret keeps the first and last four characters of long secrets and
// replaces everything else.
func MaskSecret(s string) string {
	if len(s) <= 12 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", 8) + s[len(s)-4:]
}
