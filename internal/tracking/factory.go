// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"fmt"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/retry"
)

// Constructor builds one user's client for a service. It returns a nil
// Client when the user has no credentials for the service.
type Constructor func(user string, u config.UserConfig) (Client, error)

// Factory builds tracking clients by service name.
type Factory struct {
	constructors map[string]Constructor
	order        []string
}

// NewFactory returns an empty factory.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// DefaultFactory registers Trakt and TV Time. Clients of one service share
// its HTTP client, pacing and circuit breaker.
func DefaultFactory(cfg *config.Config) *Factory {
	policy := PolicyFromConfig(cfg.Retry)
	f := NewFactory()

	traktReq := newTraktRequester(cfg.Trakt, cfg.CircuitBreaker)
	f.Register(TraktService, func(user string, u config.UserConfig) (Client, error) {
		if u.Trakt == nil {
			return nil, nil
		}
		if err := config.ValidateCredentials(u.Trakt); err != nil {
			return nil, err
		}
		return newTraktClient(user, *u.Trakt, cfg.Trakt, traktReq, policy), nil
	})

	tvtimeReq := newTVTimeRequester(cfg.TVTime, cfg.CircuitBreaker)
	f.Register(TVTimeService, func(user string, u config.UserConfig) (Client, error) {
		if u.TVTime == nil {
			return nil, nil
		}
		if err := config.ValidateCredentials(u.TVTime); err != nil {
			return nil, err
		}
		tokens := newTVTimeTokenSource(cfg.TVTime, *u.TVTime)
		return newTVTimeClient(user, *u.TVTime, cfg.TVTime, tokens, tvtimeReq, policy), nil
	})

	return f
}

// Register adds a constructor. Services are built in registration order.
func (f *Factory) Register(name string, c Constructor) {
	if _, exists := f.constructors[name]; !exists {
		f.order = append(f.order, name)
	}
	f.constructors[name] = c
}

// Names returns registered services in build order.
func (f *Factory) Names() []string {
	return append([]string(nil), f.order...)
}

// Build creates every configured client, keyed by user. A service with
// invalid credentials is logged and skipped; the user's other services
// are still built.
func (f *Factory) Build(ctx context.Context, cfg *config.Config) map[string][]Client {
	clients := make(map[string][]Client, len(cfg.Users))
	for _, user := range cfg.UserKeys() {
		u := cfg.Users[user]
		for _, name := range f.order {
			client, err := f.constructors[name](user, u)
			if err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("user", user).Str("service", name).Msg("Skipping misconfigured tracking service")
				continue
			}
			if client == nil {
				continue
			}
			clients[user] = append(clients[user], client)
		}
		if len(clients[user]) == 0 {
			logging.Ctx(ctx).Warn().Str("user", user).Msg("User has no usable tracking services")
		}
	}
	return clients
}

// LoginAll authenticates every client eagerly. Failures are logged; a
// client whose credentials were rejected keeps a failed session and is
// skipped at dispatch, any other client logs in again on first use.
func LoginAll(ctx context.Context, clients map[string][]Client) {
	for user, list := range clients {
		for _, c := range list {
			if err := c.Login(ctx); err != nil {
				logging.Ctx(ctx).Error().Err(err).Str("user", user).Str("service", c.Name()).Msg("Startup login failed")
				continue
			}
			logging.Ctx(ctx).Info().Str("user", user).Str("service", c.Name()).Msg("Tracking service ready")
		}
	}
}

// PolicyFromConfig converts retry settings to a retry.Policy.
func PolicyFromConfig(cfg config.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      cfg.MaxDelay,
		BackoffFactor: cfg.BackoffFactor,
		Jitter:        cfg.Jitter,
	}
}

// Describe summarizes a client for diagnostics.
func Describe(c Client) string {
	switch v := c.(type) {
	case *TraktClient:
		return fmt.Sprintf("%s (session %s, breaker %s)", v.Name(), v.session.State(), v.req.breaker.State())
	case *TVTimeClient:
		return fmt.Sprintf("%s (session %s, breaker %s)", v.Name(), v.session.State(), v.req.breaker.State())
	default:
		return c.Name()
	}
}
