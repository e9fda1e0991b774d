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

	"github.com/tomtom215/watchrelay/internal/retry"
)

var (
	// ErrAuthentication means the service rejected the credentials. It is
	// never retried.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRetryExhausted means the service kept answering 429 until the
	// attempt budget ran out.
	ErrRetryExhausted = errors.New("rate limit retries exhausted")

	// ErrSessionFailed means the session gave up permanently after a
	// non-retryable login failure.
	ErrSessionFailed = errors.New("session failed")

	// ErrCircuitOpen means the client's circuit breaker is rejecting calls.
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// StatusError is an unexpected HTTP response from a tracking service.
type StatusError struct {
	Service    string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s returned %d: %s", e.Service, e.Method, e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408
}

// AuthError is a credential rejection. It matches ErrAuthentication.
type AuthError struct {
	Service string
	Message string
	// Hint is a human-actionable remedy, logged with the failure.
	Hint string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Service, ErrAuthentication, e.Message)
}

func (e *AuthError) Unwrap() error { return ErrAuthentication }

// IsTransient reports whether err is a network failure, a timeout or a
// retryable HTTP status. Authentication failures, spent retry budgets, open
// circuits and cancellation are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrAuthentication),
		errors.Is(err, ErrRetryExhausted),
		errors.Is(err, ErrSessionFailed),
		errors.Is(err, ErrCircuitOpen),
		errors.Is(err, retry.ErrExhausted),
		errors.Is(err, context.Canceled):
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// classifySession marks errors from a session-backed request. Session
// failures are permanent since logins carry their own retry budget.
func classifySession(err error) error {
	if errors.Is(err, ErrAuthentication) || errors.Is(err, ErrSessionFailed) {
		return retry.Permanent(err)
	}
	return classify(err)
}

// classify marks non-transient errors as permanent for retry.Do.
func classify(err error) error {
	if err == nil || IsTransient(err) {
		return err
	}
	return retry.Permanent(err)
}
