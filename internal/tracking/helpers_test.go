// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/retry"
)

// noRetry keeps tests free of back-off sleeps.
var noRetry = retry.Policy{MaxRetries: 0, InitialDelay: time.Millisecond}

// sleepRecorder stands in for requester.sleep.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

// newTestRequester returns an unpaced requester without a breaker.
func newTestRequester(service string, srv *httptest.Server) (*requester, *sleepRecorder) {
	rec := &sleepRecorder{}
	return &requester{
		service:    service,
		httpClient: srv.Client(),
		sleep:      rec.sleep,
	}, rec
}

// recordedRequest is a request captured by a fake upstream.
type recordedRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// capture records every request it serves.
type capture struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (c *capture) record(r *http.Request) recordedRequest {
	body, _ := io.ReadAll(r.Body)
	rr := recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}
	c.mu.Lock()
	c.requests = append(c.requests, rr)
	c.mu.Unlock()
	return rr
}

func (c *capture) all() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]recordedRequest(nil), c.requests...)
}

func (c *capture) count(path string) int {
	n := 0
	for _, r := range c.all() {
		if r.Path == path {
			n++
		}
	}
	return n
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v interface{}) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func testTraktConfig(baseURL string) config.TraktConfig {
	cfg := config.Default().Trakt
	cfg.BaseURL = baseURL
	cfg.RateLimitPerSecond = 0
	return cfg
}

func testTVTimeConfig(baseURL string) config.TVTimeConfig {
	cfg := config.Default().TVTime
	cfg.AppURL = baseURL
	cfg.AuthAppURL = baseURL
	return cfg
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
