// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	requestIDKey     contextKey = "request_id"
	managerKey       contextKey = "manager"
	userKey          contextKey = "user"
)

// GenerateCorrelationID creates a new unique correlation ID.
// Returns the first 8 characters of a UUID for readability.
func GenerateCorrelationID() string {
	return uuid.New().String()[:8]
}

// GenerateRequestID creates a new unique request ID.
func GenerateRequestID() string {
	return uuid.New().String()
}

// ContextWithCorrelationID returns a new context with the given correlation ID.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// ContextWithNewCorrelationID returns a context with a newly generated correlation ID.
func ContextWithNewCorrelationID(ctx context.Context) context.Context {
	return ContextWithCorrelationID(ctx, GenerateCorrelationID())
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID returns a new context with the given request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithManager tags the context with the source media manager
// ("plex", "jellyfin") that produced the webhook being handled.
func ContextWithManager(ctx context.Context, manager string) context.Context {
	return context.WithValue(ctx, managerKey, manager)
}

// ContextWithUser tags the context with the normalized user key.
func ContextWithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Ctx returns a logger with context values automatically added.
//
//	logging.Ctx(ctx).Info().Msg("Processing webhook")
//	// {"level":"info","correlation_id":"abc12345","request_id":"...","manager":"plex","message":"Processing webhook"}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith returns a logger context builder with context values pre-populated.
//
//	logger := logging.CtxWith(ctx).Str("service", "trakt").Logger()
func CtxWith(ctx context.Context) zerolog.Context {
	logCtx := Logger().With()

	if id := CorrelationIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("correlation_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if m, ok := ctx.Value(managerKey).(string); ok && m != "" {
		logCtx = logCtx.Str("manager", m)
	}
	if u, ok := ctx.Value(userKey).(string); ok && u != "" {
		logCtx = logCtx.Str("user", u)
	}

	return logCtx
}

// WithComponent creates a child logger with a component field.
//
//	cliLogger := logging.WithComponent("cli")
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
