// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package webhook turns media manager webhook payloads into canonical
// media events.
//
// Each supported media manager has an Adapter that recognizes completed
// playback, extracts the title and user, and later resolves the external
// identifiers and episode coordinates from the retained payload. Adapters
// never return errors: anything that is not a completed movie or episode
// is logged and dropped.
//
// Supported Managers:
//   - plex: media.scrobble events from Plex Media Server webhooks
//   - jellyfin: PlaybackStop events with played_to_completion from the
//     Jellyfin webhook plugin
package webhook

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tomtom215/watchrelay/internal/models"
)

// Adapter normalizes one media manager's webhook payloads.
type Adapter interface {
	// Name is the manager tag used in the webhook URL.
	Name() string

	// Parse returns the completed playback event carried by payload, or nil
	// when the payload is not actionable.
	Parse(ctx context.Context, payload []byte) *models.MediaEvent

	// ExtractDetails resolves identifiers and episode coordinates from the
	// event's raw payload. Unknown fields stay nil.
	ExtractDetails(ctx context.Context, event *models.MediaEvent) models.MediaDetails
}

// Registry maps manager tags to adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry from adapters, keyed by lowercased Name().
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(NewPlexAdapter(), NewJellyfinAdapter())
}

// Register adds or replaces an adapter.
func (r *Registry) Register(a Adapter) {
	r.adapters[strings.ToLower(a.Name())] = a
}

// Lookup returns the adapter for a manager tag (case-insensitive).
func (r *Registry) Lookup(tag string) (Adapter, bool) {
	a, ok := r.adapters[strings.ToLower(strings.TrimSpace(tag))]
	return a, ok
}

// Names returns the registered manager tags in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SanitizeLogValue removes control characters from strings to prevent log
// injection through webhook supplied titles and user names.
func SanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			result.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
