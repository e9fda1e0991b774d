// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package webhook

import (
	"context"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/models"
)

// PlexAdapter handles Plex Media Server webhooks.
//
// Plex fires media.scrobble once playback passes the watched threshold,
// so it is the only event treated as a completed watch. Play, pause,
// resume and stop are dropped.
type PlexAdapter struct{}

// NewPlexAdapter creates a Plex adapter.
func NewPlexAdapter() *PlexAdapter {
	return &PlexAdapter{}
}

// Name implements Adapter.
func (a *PlexAdapter) Name() string {
	return "plex"
}

// Parse implements Adapter.
func (a *PlexAdapter) Parse(ctx context.Context, payload []byte) *models.MediaEvent {
	logger := logging.Ctx(ctx)

	var webhook models.PlexWebhook
	if err := json.Unmarshal(payload, &webhook); err != nil {
		logger.Error().Err(err).Msg("Failed to parse Plex webhook JSON")
		return nil
	}

	if webhook.Event != models.PlexEventScrobble {
		logger.Debug().Str("event", SanitizeLogValue(webhook.Event)).Msg("Ignoring Plex event")
		return nil
	}

	metadata := webhook.Metadata
	if metadata == nil {
		logger.Error().Msg("Metadata not found in Plex webhook")
		return nil
	}

	user := strings.ToLower(strings.TrimSpace(webhook.Account.Title))
	if user == "" {
		logger.Error().Msg("Account title not found in Plex webhook")
		return nil
	}

	var (
		mediaType models.MediaType
		title     string
	)
	switch strings.ToLower(metadata.LibrarySectionType) {
	case "movie":
		mediaType, title = models.MediaTypeMovie, metadata.Title
	case "show":
		mediaType, title = models.MediaTypeShow, metadata.GrandparentTitle
	default:
		logger.Error().
			Str("library_section_type", SanitizeLogValue(metadata.LibrarySectionType)).
			Msg("Unsupported Plex library section type")
		return nil
	}

	title = strings.TrimSpace(title)
	if title == "" {
		logger.Error().Str("media_type", string(mediaType)).Msg("Title not found in Plex webhook")
		return nil
	}

	return &models.MediaEvent{
		MediaType: mediaType,
		Title:     title,
		UserKey:   user,
		Raw:       append(json.RawMessage(nil), payload...),
	}
}

// ExtractDetails implements Adapter.
func (a *PlexAdapter) ExtractDetails(ctx context.Context, event *models.MediaEvent) models.MediaDetails {
	var details models.MediaDetails

	var webhook models.PlexWebhook
	if err := json.Unmarshal(event.Raw, &webhook); err != nil || webhook.Metadata == nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Plex payload has no readable metadata")
		return details
	}
	metadata := webhook.Metadata

	resolveGUIDs(&details, metadata.Guids)
	details.Year = metadata.Year

	if event.IsShow() {
		details.ShowTitle = metadata.GrandparentTitle
		details.Season = metadata.ParentIndex
		details.Episode = metadata.Index
	} else {
		details.ShowTitle = metadata.Title
	}

	logging.Ctx(ctx).Debug().
		Str("show_title", SanitizeLogValue(details.ShowTitle)).
		Str("episode", details.EpisodeLabel()).
		Str("tvdb", models.Deref(details.TVDBID)).
		Str("tmdb", models.Deref(details.TMDBID)).
		Str("imdb", models.Deref(details.IMDBID)).
		Msg("Resolved Plex media details")

	return details
}
