// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
)

const (
	// maxRateLimitAttempts bounds the total attempts of one request that
	// keeps answering 429.
	maxRateLimitAttempts = 3

	// defaultRetryAfter applies when a 429 carries no usable Retry-After.
	defaultRetryAfter = time.Second

	// maxRetryAfter caps a single 429 wait.
	maxRetryAfter = 10 * time.Second

	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 1 << 20
)

// newHTTPClient returns a client with a short connect timeout and a longer
// overall request timeout.
func newHTTPClient(connectTimeout, requestTimeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSHandshakeTimeout: connectTimeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// newLimiter returns nil when perSecond is zero, which disables pacing.
func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// requester executes tracking service requests with pacing, circuit
// breaking and bounded 429 handling. It is shared by every session of a
// service.
type requester struct {
	service    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker

	// sleep waits between rate limited attempts. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// onRateLimit lets a client log service-specific rate limit details.
	onRateLimit func(ctx context.Context, resp *http.Response)
}

// requestConfig holds configuration for building HTTP requests
type requestConfig struct {
	method string
	url    string
	body   interface{} // JSON-encoded when non-nil
	bearer string
	header http.Header
}

// response is a fully read HTTP response.
type response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// decode unmarshals the body into v.
func (r *response) decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError builds a StatusError for an unexpected response.
func (r *response) statusError(service string, cfg requestConfig) *StatusError {
	body := string(r.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	return &StatusError{
		Service:    service,
		Method:     cfg.method,
		URL:        cfg.url,
		StatusCode: r.StatusCode,
		Body:       body,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// do executes the request and returns any non-429 response for the
// caller to interpret. A request still rate limited after
// maxRateLimitAttempts returns ErrRetryExhausted.
func (r *requester) do(ctx context.Context, cfg requestConfig) (*response, error) {
	var payload []byte
	if cfg.body != nil {
		var err error
		payload, err = json.Marshal(cfg.body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	logger := logging.Ctx(ctx)
	for attempt := 1; ; attempt++ {
		resp, err := r.roundTrip(ctx, cfg, payload)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		metrics.TrackingRateLimited.WithLabelValues(r.service).Inc()
		if attempt >= maxRateLimitAttempts {
			logger.Error().Str("service", r.service).Int("attempts", attempt).Msg("Rate limit retries exhausted")
			return nil, fmt.Errorf("%s: %s %s: %w after %d attempts", r.service, cfg.method, cfg.url, ErrRetryExhausted, attempt)
		}

		retryDelay := retryAfter(resp.Header.Get("Retry-After"))
		if retryDelay > maxRetryAfter {
			logger.Warn().Str("service", r.service).Dur("retry_after", retryDelay).Dur("retry_delay", maxRetryAfter).Msg("Retry-After exceeds cap, clamping")
			retryDelay = maxRetryAfter
		}
		logger.Warn().Str("service", r.service).Dur("retry_delay", retryDelay).Int("attempt", attempt).Int("max_attempts", maxRateLimitAttempts).Msg("Rate limited (HTTP 429), retrying")

		if err := r.sleep(ctx, retryDelay); err != nil {
			return nil, err
		}
	}
}

// roundTrip performs one paced, breaker-guarded exchange and reads the body.
func (r *requester) roundTrip(ctx context.Context, cfg requestConfig, payload []byte) (*response, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w", r.service, err)
		}
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, cfg.method, cfg.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range cfg.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if cfg.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.bearer)
	}

	start := time.Now()
	httpResp, err := r.breaker.execute(func() (*http.Response, error) {
		return r.httpClient.Do(req)
	})
	if err != nil {
		metrics.RecordTrackingRequest(r.service, 0, time.Since(start))
		return nil, fmt.Errorf("%s: execute request: %w", r.service, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	metrics.RecordTrackingRequest(r.service, httpResp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", r.service, err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests && r.onRateLimit != nil {
		r.onRateLimit(ctx, httpResp)
	}

	return &response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}, nil
}

// retryAfter parses a Retry-After value in seconds.
func retryAfter(v string) time.Duration {
	if v == "" {
		return defaultRetryAfter
	}
	d, err := time.ParseDuration(v + "s")
	if err != nil || d < 0 {
		return defaultRetryAfter
	}
	return d
}

// doAuthorized sends the request built from the session's token. A 401
// drops the access token and the request is sent once more with a fresh
// one.
func (r *requester) doAuthorized(ctx context.Context, s *Session, build func(Token) requestConfig) (*response, requestConfig, error) {
	for attempt := 0; ; attempt++ {
		token, err := s.Acquire(ctx)
		if err != nil {
			return nil, requestConfig{}, err
		}

		cfg := build(token)
		resp, err := r.do(ctx, cfg)
		if err != nil {
			return nil, cfg, err
		}
		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			logging.Ctx(ctx).Warn().Str("service", r.service).Msg("Access token rejected, re-authenticating")
			s.Invalidate()
			continue
		}
		return resp, cfg, nil
	}
}
