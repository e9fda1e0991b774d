// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package services

import (
	"context"
	"sync/atomic"

	"github.com/tomtom215/watchrelay/internal/logging"
)

// LoginService runs startup logins under supervision.
type LoginService struct {
	login func(ctx context.Context)
	ready func(bool)
	done  atomic.Bool
	name  string
}

// NewLoginService creates a service that calls login once and then
// reports readiness through ready.
func NewLoginService(login func(ctx context.Context), ready func(bool)) *LoginService {
	return &LoginService{
		login: login,
		ready: ready,
		name:  "tracking-login",
	}
}

// Serve implements suture.Service. Logins run only on the first start; a
// restart after a panic goes straight to idling.
func (s *LoginService) Serve(ctx context.Context) error {
	if !s.done.Load() {
		logging.Ctx(ctx).Info().Msg("Logging in to tracking services")
		s.login(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.done.Store(true)
		s.ready(true)
		logging.Ctx(ctx).Info().Msg("Startup logins finished")
	}

	<-ctx.Done()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor events.
func (s *LoginService) String() string {
	return s.name
}
