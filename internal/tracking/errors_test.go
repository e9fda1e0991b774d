// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/tomtom215/watchrelay/internal/retry"
)

func TestIsTransient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{StatusCode: 503}, true},
		{"request timeout", &StatusError{StatusCode: 408}, true},
		{"client error", &StatusError{StatusCode: 404}, false},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"wrapped network", fmt.Errorf("trakt: %w", &net.OpError{Op: "read", Err: errors.New("reset")}), true},
		{"auth", &AuthError{Service: "trakt", Message: "bad"}, false},
		{"rate limit exhausted", fmt.Errorf("x: %w", ErrRetryExhausted), false},
		{"session failed", ErrSessionFailed, false},
		{"circuit open", ErrCircuitOpen, false},
		{"retry budget spent", fmt.Errorf("%w: %w", retry.ErrExhausted, &StatusError{StatusCode: 500}), false},
		{"canceled", context.Canceled, false},
		{"timeout", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("%s: IsTransient() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	if err := classify(&StatusError{StatusCode: 502}); retry.IsPermanent(err) {
		t.Error("5xx should stay retryable")
	}
	if err := classify(&StatusError{StatusCode: 422}); !retry.IsPermanent(err) {
		t.Error("4xx should be permanent")
	}
	if err := classifySession(&AuthError{}); !retry.IsPermanent(err) || !errors.Is(err, ErrAuthentication) {
		t.Errorf("auth error should be permanent and keep its identity: %v", err)
	}
	if classify(nil) != nil {
		t.Error("classify(nil) should be nil")
	}
}

func TestAuthError(t *testing.T) {
	t.Parallel()

	err := &AuthError{Service: "tvtime", Message: "invalid username or password"}
	if err.Error() != "tvtime: authentication failed: invalid username or password" {
		t.Errorf("Error() = %q", err.Error())
	}
}
