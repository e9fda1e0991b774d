// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
)

// SessionState is the lifecycle state of a Session.
type SessionState int32

const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateRefreshing
	// StateFailed is terminal.
	StateFailed
)

func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// expirySkew renews tokens slightly before the service would reject them.
const expirySkew = time.Minute

// Token is a bearer credential and what is needed to renew it.
type Token struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero when the expiry is unknown.
	ExpiresAt time.Time
}

// Valid reports whether the access token can be used at now.
func (t Token) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt.Add(-expirySkew))
}

// Authenticator performs a service's credential exchanges.
type Authenticator interface {
	// Login obtains a token from the configured credentials.
	Login(ctx context.Context) (Token, error)
	// Refresh renews current. Implementations without a refresh grant
	// may log in again.
	Refresh(ctx context.Context, current Token) (Token, error)
}

// Session owns the token of one (user, service) pair. Callers always get a
// usable token or an error; concurrent callers wait on a single login or
// refresh instead of racing.
type Session struct {
	service string
	user    string
	auth    Authenticator
	now     func() time.Time

	mu      sync.Mutex
	state   SessionState
	token   Token
	failure error
}

// NewSession creates an unauthenticated session.
func NewSession(service, user string, auth Authenticator) *Session {
	s := &Session{
		service: service,
		user:    user,
		auth:    auth,
		now:     time.Now,
	}
	s.setState(StateUnauthenticated)
	return s
}

// State returns the current state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Seed installs a token obtained out of band, such as a configured
// refresh token. It does nothing once the session has failed.
func (s *Session) Seed(t Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return
	}
	s.token = t
	if t.Valid(s.now()) {
		s.setState(StateAuthenticated)
	}
}

// Invalidate drops the access token after the service rejected it. The
// refresh token is kept so the next call refreshes instead of logging in.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateFailed {
		return
	}
	s.token.AccessToken = ""
	s.token.ExpiresAt = time.Time{}
}

// Acquire returns a valid token, logging in or refreshing as needed.
func (s *Session) Acquire(ctx context.Context) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateFailed {
		return Token{}, fmt.Errorf("%s session for %s: %w: %w", s.service, s.user, ErrSessionFailed, s.failure)
	}
	if s.token.Valid(s.now()) {
		return s.token, nil
	}

	if s.token.RefreshToken != "" {
		err := s.refreshLocked(ctx)
		if err == nil {
			return s.token, nil
		}
		if !errors.Is(err, ErrAuthentication) {
			return Token{}, err
		}
		// Refresh grant rejected; a fresh login may still succeed.
		s.token = Token{}
	}

	if err := s.loginLocked(ctx); err != nil {
		return Token{}, err
	}
	return s.token, nil
}

// AccessToken returns a valid access token.
func (s *Session) AccessToken(ctx context.Context) (string, error) {
	t, err := s.Acquire(ctx)
	return t.AccessToken, err
}

// Login authenticates unless the session already holds a valid token.
func (s *Session) Login(ctx context.Context) error {
	_, err := s.Acquire(ctx)
	return err
}

func (s *Session) loginLocked(ctx context.Context) error {
	s.setState(StateAuthenticating)

	token, err := s.auth.Login(ctx)
	metrics.RecordLogin(s.service, "login", err == nil)
	if err != nil {
		s.logFailure(ctx, "login_failed", err)
		if errors.Is(err, ErrAuthentication) {
			s.failure = err
			s.setState(StateFailed)
			logging.LogAuthEvent(ctx, logging.AuthEvent{
				Event:   "session_failed",
				Service: s.service,
				User:    s.user,
				Err:     err,
			})
			return fmt.Errorf("%s session for %s: %w: %w", s.service, s.user, ErrSessionFailed, err)
		}
		s.setState(StateUnauthenticated)
		return err
	}

	s.token = token
	s.setState(StateAuthenticated)
	logging.LogAuthEvent(ctx, logging.AuthEvent{
		Event:   "login",
		Service: s.service,
		User:    s.user,
		Token:   token.AccessToken,
		Success: true,
	})
	return nil
}

func (s *Session) refreshLocked(ctx context.Context) error {
	previous := s.state
	s.setState(StateRefreshing)

	token, err := s.auth.Refresh(ctx, s.token)
	metrics.RecordLogin(s.service, "refresh", err == nil)
	if err != nil {
		s.logFailure(ctx, "refresh_failed", err)
		s.setState(previous)
		return err
	}

	if token.RefreshToken == "" {
		token.RefreshToken = s.token.RefreshToken
	}
	s.token = token
	s.setState(StateAuthenticated)
	logging.LogAuthEvent(ctx, logging.AuthEvent{
		Event:   "refresh",
		Service: s.service,
		User:    s.user,
		Token:   token.AccessToken,
		Success: true,
	})
	return nil
}

func (s *Session) logFailure(ctx context.Context, event string, err error) {
	ev := logging.AuthEvent{
		Event:   event,
		Service: s.service,
		User:    s.user,
		Err:     err,
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		ev.Hint = authErr.Hint
	}
	logging.LogAuthEvent(ctx, ev)
}

func (s *Session) setState(state SessionState) {
	s.state = state
	metrics.SessionState.WithLabelValues(s.service, s.user).Set(float64(state))
}
