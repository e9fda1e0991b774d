// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package models

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Jellyfin webhook plugin notification types.
const (
	JellyfinEventPlaybackStart = "PlaybackStart"
	JellyfinEventPlaybackStop  = "PlaybackStop"
)

// Jellyfin payload keys. The webhook plugin renders a user supplied
// Handlebars template, so the recommended template uses the snake_case keys
// below; the plugin's stock template keys are accepted as fallbacks.
const (
	JellyfinKeyEvent              = "event"
	JellyfinKeyPlayedToCompletion = "played_to_completion"
	JellyfinKeyUsername           = "username"
	JellyfinKeyItemType           = "item_type"
	JellyfinKeyTitle              = "title"
	JellyfinKeySeriesName         = "series_name"
	JellyfinKeySeasonNumber       = "season_number"
	JellyfinKeyEpisodeNumber      = "episode_number"
	JellyfinKeyYear               = "year"
	JellyfinKeyTVDB               = "tvdb_id"
	JellyfinKeyTMDB               = "tmdb_id"
	JellyfinKeyIMDB               = "imdb_id"

	JellyfinStockNotificationType   = "NotificationType"
	JellyfinStockPlayedToCompletion = "PlayedToCompletion"
	JellyfinStockUsername           = "NotificationUsername"
	JellyfinStockItemType           = "ItemType"
	JellyfinStockName               = "Name"
	JellyfinStockSeriesName         = "SeriesName"
	JellyfinStockSeasonNumber       = "SeasonNumber"
	JellyfinStockEpisodeNumber      = "EpisodeNumber"
	JellyfinStockYear               = "Year"
	JellyfinStockTVDB               = "Provider_tvdb"
	JellyfinStockTMDB               = "Provider_tmdb"
	JellyfinStockIMDB               = "Provider_imdb"
)

// JellyfinWebhook is a flat Jellyfin webhook payload. Keys are matched
// exactly; JSON struct decoding would fold "year" onto "Year".
type JellyfinWebhook map[string]FlexValue

// Lookup returns the first present, non-blank value among keys.
func (w JellyfinWebhook) Lookup(keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := w[k]; ok {
			if s, ok := v.String(); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// LookupInt returns the first present integer value among keys, or nil.
func (w JellyfinWebhook) LookupInt(keys ...string) *int {
	for _, k := range keys {
		if v, ok := w[k]; ok {
			if n := v.Int(); n != nil {
				return n
			}
		}
	}
	return nil
}

// FlexValue holds a scalar JSON value whose type depends on how a template
// was written: 42, "42", true, "True" and null are all accepted. Objects and
// arrays are kept but report no scalar value.
type FlexValue struct {
	raw    string
	scalar bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *FlexValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = FlexValue{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = FlexValue{raw: strings.TrimSpace(s), scalar: true}
	case data[0] == '{' || data[0] == '[':
		*v = FlexValue{raw: string(data)}
	default:
		*v = FlexValue{raw: string(data), scalar: true}
	}
	return nil
}

// NewFlexValue builds a scalar value, mainly for tests.
func NewFlexValue(s string) FlexValue {
	return FlexValue{raw: s, scalar: true}
}

// String returns the scalar value as text.
func (v FlexValue) String() (string, bool) {
	if !v.scalar {
		return "", false
	}
	return v.raw, true
}

// Int parses the scalar value as an integer; blank or non-numeric yields nil.
func (v FlexValue) Int() *int {
	s, ok := v.String()
	if !ok {
		return nil
	}
	return ParseIntPtr(s)
}

// Bool interprets "true"/"True"/true/"1" as true.
func (v FlexValue) Bool() bool {
	s, ok := v.String()
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(strings.ToLower(s))
	return err == nil && b
}
