// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/watchrelay/internal/metrics"
)

func TestPrometheusMetrics(t *testing.T) {
	t.Parallel()

	t.Run("labels by route pattern", func(t *testing.T) {
		t.Parallel()

		r := chi.NewRouter()
		r.Use(PrometheusMetrics)
		r.Post("/metrics-test/{manager}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("POST", "/metrics-test/{manager}", "204"))
		for _, manager := range []string{"plex", "jellyfin", "whatever"} {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/metrics-test/"+manager, nil))
			if rec.Code != http.StatusNoContent {
				t.Fatalf("status = %d", rec.Code)
			}
		}

		after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("POST", "/metrics-test/{manager}", "204"))
		if after-before != 3 {
			t.Errorf("requests recorded = %v, want 3 under one pattern label", after-before)
		}
	})

	t.Run("unmatched outside a router", func(t *testing.T) {
		t.Parallel()

		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))

		before := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "unmatched", "418"))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		after := testutil.ToFloat64(metrics.APIRequestsTotal.WithLabelValues("GET", "unmatched", "418"))

		if after-before != 1 {
			t.Errorf("requests recorded = %v, want 1", after-before)
		}
	})

	t.Run("defaults to 200 when WriteHeader not called", func(t *testing.T) {
		t.Parallel()

		handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("Hello"))
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		if rec.Code != http.StatusOK {
			t.Errorf("Expected default status 200, got %d", rec.Code)
		}
	})
}

func TestMetricsResponseWriter(t *testing.T) {
	t.Parallel()

	t.Run("captures first status code", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		wrapper := &metricsResponseWriter{
			ResponseWriter: rec,
			statusCode:     http.StatusOK,
		}

		wrapper.WriteHeader(http.StatusNotFound)
		wrapper.WriteHeader(http.StatusInternalServerError)

		if wrapper.statusCode != http.StatusNotFound {
			t.Errorf("Expected status code 404, got %d", wrapper.statusCode)
		}
		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected underlying recorder status 404, got %d", rec.Code)
		}
	})

	t.Run("preserves ResponseWriter functionality", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		wrapper := &metricsResponseWriter{ResponseWriter: rec}

		wrapper.Header().Set("Content-Type", "text/plain")
		n, err := wrapper.Write([]byte("test body"))
		if err != nil || n != 9 {
			t.Errorf("Write() = (%d, %v)", n, err)
		}
		if rec.Body.String() != "test body" {
			t.Errorf("Body not written: %s", rec.Body.String())
		}
		if wrapper.Unwrap() != rec {
			t.Error("Unwrap should return the underlying writer")
		}
	})
}
