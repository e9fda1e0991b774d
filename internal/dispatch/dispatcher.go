// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package dispatch routes webhook payloads to the tracking services of the
// user who finished watching.
//
// A payload is parsed by the adapter registered for its manager tag, its
// details are resolved once, and every client configured for the user is
// called in turn. A failing or panicking client is logged and does not
// prevent the others from running.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
	"github.com/tomtom215/watchrelay/internal/models"
	"github.com/tomtom215/watchrelay/internal/tracking"
	"github.com/tomtom215/watchrelay/internal/webhook"
)

// Outcome is the result reported to the media manager.
type Outcome int

const (
	// OutcomeEmpty means the payload was not actionable.
	OutcomeEmpty Outcome = iota
	// OutcomeAccepted means the event was dispatched to the user's services.
	OutcomeAccepted
)

func (o Outcome) String() string {
	if o == OutcomeAccepted {
		return "accepted"
	}
	return "empty"
}

// Dispatcher fans events out to tracking clients. It is safe for
// concurrent use; clients are fixed at construction.
type Dispatcher struct {
	registry *webhook.Registry
	clients  map[string][]tracking.Client
}

// New creates a dispatcher over clients keyed by lowercased user key.
func New(registry *webhook.Registry, clients map[string][]tracking.Client) *Dispatcher {
	return &Dispatcher{registry: registry, clients: clients}
}

// Users returns the number of users with at least one client.
func (d *Dispatcher) Users() int {
	return len(d.clients)
}

// Handle processes one webhook payload to completion.
//
// Outbound calls run on a context detached from ctx's cancellation so a
// media manager hanging up does not abort a half-delivered event. Log
// values carried by ctx are kept.
func (d *Dispatcher) Handle(ctx context.Context, managerTag string, payload []byte) Outcome {
	ctx = logging.ContextWithManager(context.WithoutCancel(ctx), webhook.SanitizeLogValue(managerTag))
	logger := logging.Ctx(ctx)

	outcome := d.handle(ctx, managerTag, payload)
	metrics.RecordWebhook(d.managerLabel(managerTag), outcome == OutcomeAccepted)
	logger.Debug().Str("outcome", outcome.String()).Msg("Webhook handled")
	return outcome
}

// managerLabel bounds the metric label to registered managers.
func (d *Dispatcher) managerLabel(tag string) string {
	if a, ok := d.registry.Lookup(tag); ok {
		return a.Name()
	}
	return "unknown"
}

func (d *Dispatcher) handle(ctx context.Context, managerTag string, payload []byte) Outcome {
	logger := logging.Ctx(ctx)

	adapter, ok := d.registry.Lookup(managerTag)
	if !ok {
		logger.Warn().Str("manager", webhook.SanitizeLogValue(managerTag)).Msg("Unknown media manager")
		return OutcomeEmpty
	}

	event := adapter.Parse(ctx, payload)
	if event == nil {
		return OutcomeEmpty
	}

	ctx = logging.ContextWithUser(ctx, event.UserKey)
	logger = logging.Ctx(ctx)

	clients := d.clients[event.UserKey]
	if len(clients) == 0 {
		logger.Info().Str("title", webhook.SanitizeLogValue(event.Title)).Msg("No tracking services configured for user")
		return OutcomeEmpty
	}

	details := adapter.ExtractDetails(ctx, event)
	if details.IsEmpty() {
		logger.Warn().Str("title", webhook.SanitizeLogValue(event.Title)).Msg("No media details could be resolved")
		return OutcomeEmpty
	}

	logger.Info().
		Str("media_type", string(event.MediaType)).
		Str("title", webhook.SanitizeLogValue(event.Title)).
		Int("services", len(clients)).
		Msg("Dispatching watch event")

	for _, client := range clients {
		d.deliver(ctx, client, event, details)
	}
	return OutcomeAccepted
}

// deliver calls one client, containing its errors and panics.
func (d *Dispatcher) deliver(ctx context.Context, client tracking.Client, event *models.MediaEvent, details models.MediaDetails) {
	service := client.Name()
	logger := logging.Ctx(ctx).With().Str("service", service).Logger()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			metrics.DispatchFailures.WithLabelValues(service, "panic").Inc()
			logger.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("Tracking service panicked")
		}
	}()

	var err error
	if event.IsShow() {
		err = client.WatchEpisode(ctx, tracking.NewEpisodeRequest(details))
	} else {
		err = client.WatchMovie(ctx, tracking.NewMovieRequest(event, details))
	}

	if err != nil {
		metrics.DispatchFailures.WithLabelValues(service, failureKind(err)).Inc()
		logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("Failed to update tracking service")
		return
	}
	logger.Debug().Dur("duration", time.Since(start)).Msg("Tracking service updated")
}
