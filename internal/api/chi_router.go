// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a router for handler.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// SetupChi configures all HTTP routes using Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)    // Add X-Request-ID header with logging context
	r.Use(chimiddleware.RealIP)    // Extract real IP from X-Forwarded-For
	r.Use(chimiddleware.Recoverer) // Recover from panics
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)

	// ========================
	// Health Endpoints
	// ========================
	r.Route("/health", func(r chi.Router) {
		r.Use(RateLimitByIP(RateLimitHealth, "/health"))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Webhook Endpoint
	// ========================
	r.With(RateLimitByIP(RateLimitConfig{
		Requests: router.cfg.RateLimitRequests,
		Window:   router.cfg.RateLimitWindow,
	}, "/webhook/{manager}")).Post("/webhook/{manager}", router.handler.Webhook)

	return r
}
