// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Inbound HTTP and webhook outcomes
// - Outbound tracking service calls, rate limiting and sessions
// - Circuit breakers

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Webhook Metrics
	WebhooksReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhooks_received_total",
			Help: "Total number of webhooks received by manager and outcome",
		},
		[]string{"manager", "outcome"}, // outcome: "accepted", "empty"
	)

	WebhookSignatureFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Total number of webhooks rejected for a bad signature",
		},
		[]string{"manager"},
	)

	// Dispatch Metrics
	DispatchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Total number of isolated tracking service failures during dispatch",
		},
		[]string{"service", "kind"}, // kind: "error", "panic"
	)

	// Tracking Service Metrics
	TrackingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_requests_total",
			Help: "Total number of outbound tracking service requests by status code",
		},
		[]string{"service", "status_code"},
	)

	TrackingRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracking_request_duration_seconds",
			Help:    "Outbound tracking service request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)

	TrackingRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_rate_limited_total",
			Help: "Total number of 429 responses from tracking services",
		},
		[]string{"service"},
	)

	TrackingWatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_watches_total",
			Help: "Total number of watch submissions by result",
		},
		[]string{"service", "media_type", "result"}, // result: "watched", "duplicate", "not_found", "skipped", "error"
	)

	TrackingLogins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracking_logins_total",
			Help: "Total number of tracking service logins and refreshes",
		},
		[]string{"service", "kind", "result"}, // kind: "login", "refresh"
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracking_session_state",
			Help: "Session state (0=unauthenticated, 1=authenticating, 2=authenticated, 3=refreshing, 4=failed)",
		},
		[]string{"service", "user"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordWebhook records the outcome of one inbound webhook.
func RecordWebhook(manager string, accepted bool) {
	outcome := "empty"
	if accepted {
		outcome = "accepted"
	}
	WebhooksReceived.WithLabelValues(manager, outcome).Inc()
}

// RecordTrackingRequest records one outbound round trip. A transport
// failure is recorded with status code "error".
func RecordTrackingRequest(service string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	TrackingRequests.WithLabelValues(service, code).Inc()
	TrackingRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordWatch records a watch submission result.
func RecordWatch(service, mediaType, result string) {
	TrackingWatches.WithLabelValues(service, mediaType, result).Inc()
}

// RecordLogin records a login or refresh attempt.
func RecordLogin(service, kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	TrackingLogins.WithLabelValues(service, kind, result).Inc()
}
