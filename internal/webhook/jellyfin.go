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

// JellyfinAdapter handles payloads from the Jellyfin webhook plugin.
//
// The plugin sends whatever its template renders, so the recommended
// template is:
//
//	{
//	  "event": "{{NotificationType}}",
//	  "played_to_completion": "{{PlayedToCompletion}}",
//	  "username": "{{NotificationUsername}}",
//	  "item_type": "{{ItemType}}",
//	  "title": "{{Name}}",
//	  "series_name": "{{SeriesName}}",
//	  "season_number": "{{SeasonNumber}}",
//	  "episode_number": "{{EpisodeNumber}}",
//	  "year": "{{Year}}",
//	  "tvdb_id": "{{Provider_tvdb}}",
//	  "tmdb_id": "{{Provider_tmdb}}",
//	  "imdb_id": "{{Provider_imdb}}"
//	}
//
// The plugin's stock key names are accepted wherever a template key is
// missing.
type JellyfinAdapter struct{}

// NewJellyfinAdapter creates a Jellyfin adapter.
func NewJellyfinAdapter() *JellyfinAdapter {
	return &JellyfinAdapter{}
}

// Name implements Adapter.
func (a *JellyfinAdapter) Name() string {
	return "jellyfin"
}

// Parse implements Adapter.
func (a *JellyfinAdapter) Parse(ctx context.Context, payload []byte) *models.MediaEvent {
	logger := logging.Ctx(ctx)

	var webhook models.JellyfinWebhook
	if err := json.Unmarshal(payload, &webhook); err != nil {
		logger.Error().Err(err).Msg("Failed to parse Jellyfin webhook JSON")
		return nil
	}

	event, _ := webhook.Lookup(models.JellyfinKeyEvent, models.JellyfinStockNotificationType)
	if event != models.JellyfinEventPlaybackStop || !playedToCompletion(webhook) {
		logger.Debug().Str("event", SanitizeLogValue(event)).Msg("Ignoring Jellyfin event")
		return nil
	}

	username, ok := webhook.Lookup(models.JellyfinKeyUsername, models.JellyfinStockUsername)
	if !ok {
		logger.Error().Msg("Username not found in Jellyfin webhook")
		return nil
	}

	itemType, _ := webhook.Lookup(models.JellyfinKeyItemType, models.JellyfinStockItemType)
	var (
		mediaType models.MediaType
		title     string
	)
	switch strings.ToLower(itemType) {
	case "movie":
		mediaType = models.MediaTypeMovie
		title, ok = webhook.Lookup(models.JellyfinKeyTitle, models.JellyfinStockName)
	case "episode":
		mediaType = models.MediaTypeShow
		title, ok = webhook.Lookup(models.JellyfinKeySeriesName, models.JellyfinStockSeriesName)
	default:
		logger.Error().Str("item_type", SanitizeLogValue(itemType)).Msg("Invalid item type in Jellyfin webhook")
		return nil
	}
	if !ok {
		logger.Error().Str("media_type", string(mediaType)).Msg("Title not found in Jellyfin webhook")
		return nil
	}

	return &models.MediaEvent{
		MediaType: mediaType,
		Title:     title,
		UserKey:   strings.ToLower(strings.TrimSpace(username)),
		Raw:       append(json.RawMessage(nil), payload...),
	}
}

// ExtractDetails implements Adapter.
func (a *JellyfinAdapter) ExtractDetails(ctx context.Context, event *models.MediaEvent) models.MediaDetails {
	var details models.MediaDetails

	var webhook models.JellyfinWebhook
	if err := json.Unmarshal(event.Raw, &webhook); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Jellyfin payload is not readable")
		return details
	}

	details.TVDBID = lookupPtr(webhook, models.JellyfinKeyTVDB, models.JellyfinStockTVDB)
	details.TMDBID = lookupPtr(webhook, models.JellyfinKeyTMDB, models.JellyfinStockTMDB)
	details.IMDBID = lookupPtr(webhook, models.JellyfinKeyIMDB, models.JellyfinStockIMDB)
	details.Year = webhook.LookupInt(models.JellyfinKeyYear, models.JellyfinStockYear)

	if event.IsShow() {
		details.ShowTitle, _ = webhook.Lookup(models.JellyfinKeySeriesName, models.JellyfinStockSeriesName)
		details.Season = webhook.LookupInt(models.JellyfinKeySeasonNumber, models.JellyfinStockSeasonNumber)
		details.Episode = webhook.LookupInt(models.JellyfinKeyEpisodeNumber, models.JellyfinStockEpisodeNumber)
	} else {
		details.ShowTitle, _ = webhook.Lookup(models.JellyfinKeyTitle, models.JellyfinStockName)
	}

	logging.Ctx(ctx).Debug().
		Str("show_title", SanitizeLogValue(details.ShowTitle)).
		Str("episode", details.EpisodeLabel()).
		Str("tvdb", models.Deref(details.TVDBID)).
		Str("tmdb", models.Deref(details.TMDBID)).
		Str("imdb", models.Deref(details.IMDBID)).
		Msg("Resolved Jellyfin media details")

	return details
}

func playedToCompletion(w models.JellyfinWebhook) bool {
	if v, ok := w[models.JellyfinKeyPlayedToCompletion]; ok {
		return v.Bool()
	}
	return w[models.JellyfinStockPlayedToCompletion].Bool()
}

func lookupPtr(w models.JellyfinWebhook, keys ...string) *string {
	if s, ok := w.Lookup(keys...); ok {
		return &s
	}
	return nil
}
