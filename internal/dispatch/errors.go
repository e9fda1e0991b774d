// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package dispatch

import (
	"context"
	"errors"

	"github.com/tomtom215/watchrelay/internal/retry"
	"github.com/tomtom215/watchrelay/internal/tracking"
)

// failureKind labels a delivery error for the dispatch_failures_total metric.
func failureKind(err error) string {
	switch {
	case errors.Is(err, tracking.ErrSessionFailed):
		return "session_failed"
	case errors.Is(err, tracking.ErrAuthentication):
		return "auth"
	case errors.Is(err, tracking.ErrRetryExhausted):
		return "rate_limited"
	case errors.Is(err, tracking.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, retry.ErrExhausted):
		return "retries_exhausted"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
