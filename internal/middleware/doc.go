// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package middleware provides HTTP middleware for the webhook front door.

Key Components:

  - Request ID: UUID-based request tracking, wired into the logging context
    so every log line of a webhook carries request_id and correlation_id
  - Prometheus Metrics: request count, latency and in-flight gauge, labeled
    by chi route pattern so manager tags do not explode label cardinality

Both are chi-style func(http.Handler) http.Handler and are installed with
r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Access the request ID in a handler:

	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    logging.Ctx(r.Context()).Info().Msg("Processing request") // includes request_id
	}

See Also:

  - internal/api: HTTP handlers wrapped by middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
