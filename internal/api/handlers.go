// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package api

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/dispatch"
	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
	"github.com/tomtom215/watchrelay/internal/middleware"
	"github.com/tomtom215/watchrelay/internal/webhook"
)

// Dispatcher handles a webhook payload to completion.
type Dispatcher interface {
	Handle(ctx context.Context, managerTag string, payload []byte) dispatch.Outcome
	Users() int
}

// Handler serves the webhook and health endpoints.
type Handler struct {
	dispatcher Dispatcher
	secret     string
	maxBody    int64
	startTime  time.Time
	ready      atomic.Bool
}

// NewHandler creates a handler. It reports not ready until SetReady(true).
func NewHandler(d Dispatcher, cfg config.ServerConfig) *Handler {
	return &Handler{
		dispatcher: d,
		secret:     cfg.WebhookSecret,
		maxBody:    cfg.MaxBodyBytes,
		startTime:  time.Now(),
	}
}

// SetReady flips the readiness probe.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Webhook handles POST /webhook/{manager}.
//
// The response is 200 "OK" when the event was dispatched and 204 for
// everything else, including unreadable bodies and bad signatures.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	manager := chi.URLParam(r, "manager")
	logger := logging.Ctx(r.Context()).With().Str("manager", webhook.SanitizeLogValue(manager)).Logger()

	body, err := readBody(w, r, h.maxBody)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			logger.Warn().Err(err).Msg("Webhook body rejected")
		} else {
			logger.Error().Err(err).Msg("Failed to read webhook body")
		}
		respondEmpty(w)
		return
	}

	if h.secret != "" && !verifySignature(body, r.Header.Get(PlexSignatureHeader), h.secret) {
		metrics.WebhookSignatureFailures.WithLabelValues(signatureLabel(manager)).Inc()
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Webhook signature verification failed")
		respondEmpty(w)
		return
	}

	payload, err := extractPayload(r, body)
	if err != nil {
		logger.Warn().Err(err).Msg("Malformed webhook body")
		respondEmpty(w)
		return
	}
	if payload == nil {
		logger.Debug().Msg("Webhook without payload")
		respondEmpty(w)
		return
	}

	if h.dispatcher.Handle(r.Context(), manager, payload) == dispatch.OutcomeAccepted {
		respondOK(w)
		return
	}
	respondEmpty(w)
}

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of tracking services.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Meta: h.meta(r),
	})
}

// HealthReady handles readiness probe requests.
// Returns 200 once startup logins finished, 503 before.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"ready_to_serve": ready,
			"users":          h.dispatcher.Users(),
			"uptime":         time.Since(h.startTime).Seconds(),
		},
		Meta: h.meta(r),
	})
}

func (h *Handler) meta(r *http.Request) APIMeta {
	return APIMeta{
		RequestID: middleware.GetRequestID(r.Context()),
		Timestamp: time.Now(),
	}
}

// knownManagers bounds metric labels to the built-in manager tags.
var knownManagers = webhook.DefaultRegistry()

func signatureLabel(manager string) string {
	if a, ok := knownManagers.Lookup(manager); ok {
		return a.Name()
	}
	return "unknown"
}
