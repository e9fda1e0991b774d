// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package api provides the HTTP front door of Watchrelay.

Media managers post completed playback to /webhook/{manager}; the payload is
handed to the dispatcher synchronously and the manager always gets either
200 "OK" (the event was dispatched) or 204 (nothing to do). Tracking service
failures never surface as HTTP errors: media managers do not retry, and a
5xx would only fill their logs.

Routes:

  - POST /webhook/{manager}: Plex (multipart form field "payload") or
    Jellyfin (raw JSON body)
  - GET /health/live: process liveness
  - GET /health/ready: 200 once startup logins finished, else 503
  - GET /metrics: Prometheus exposition

Middleware Stack (outermost first):

	middleware.RequestID            // X-Request-ID + logging context
	chimiddleware.RealIP            // X-Forwarded-For aware client IP
	chimiddleware.Recoverer         // panic to 500
	middleware.PrometheusMetrics    // per route pattern
	httprate.LimitByIP              // webhook route only

Signature Verification:

When server.webhook_secret is set, the X-Plex-Signature header must carry
the hex HMAC-SHA256 of the raw request body. A missing or wrong signature
is logged, counted in webhook_signature_failures_total, and answered with
204 so the sender learns nothing.
*/
package api
