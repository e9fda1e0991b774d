// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Plex webhook events. Only media.scrobble (playback passed ~90%) counts
// as a completed watch.
// Documentation: https://support.plex.tv/articles/115002267687-webhooks/
const (
	PlexEventPlay     = "media.play"
	PlexEventPause    = "media.pause"
	PlexEventResume   = "media.resume"
	PlexEventStop     = "media.stop"
	PlexEventScrobble = "media.scrobble"
)

// PlexWebhook represents a Plex webhook HTTP POST payload (the JSON carried
// in the multipart "payload" form field).
type PlexWebhook struct {
	Event    string               `json:"event"`
	User     bool                 `json:"user"`
	Owner    bool                 `json:"owner"`
	Account  PlexWebhookAccount   `json:"Account"`
	Server   PlexWebhookServer    `json:"Server"`
	Player   PlexWebhookPlayer    `json:"Player"`
	Metadata *PlexWebhookMetadata `json:"Metadata,omitempty"`
}

// PlexWebhookAccount represents the user account in webhook payload
type PlexWebhookAccount struct {
	ID    int    `json:"id"`
	Title string `json:"title"` // Username/display name
}

// PlexWebhookServer represents the Plex server in webhook payload
type PlexWebhookServer struct {
	Title string `json:"title"`
	UUID  string `json:"uuid"`
}

// PlexWebhookPlayer represents the client/device in webhook payload
type PlexWebhookPlayer struct {
	Local         bool   `json:"local"`
	PublicAddress string `json:"publicAddress"`
	Title         string `json:"title"`
	UUID          string `json:"uuid"`
}

// PlexWebhookMetadata represents content metadata in webhook payload.
// Numeric coordinates are pointers so that an absent field stays
// distinguishable from zero (specials live in season 0).
type PlexWebhookMetadata struct {
	LibrarySectionType string `json:"librarySectionType"` // "movie", "show", "artist"
	Type               string `json:"type"`               // "movie", "episode", "track"
	RatingKey          string `json:"ratingKey"`
	Title              string `json:"title"`
	GrandparentTitle   string `json:"grandparentTitle"` // Show title for episodes
	ParentTitle        string `json:"parentTitle"`
	Index              *int   `json:"index"`       // Episode number
	ParentIndex        *int   `json:"parentIndex"` // Season number
	Year               *int   `json:"year"`
	// Guids lists external agent identifiers such as "tvdb://12345".
	Guids PlexGUIDs `json:"Guid"`
}

// PlexGUID is one external identifier entry.
type PlexGUID struct {
	ID string `json:"id"`
}

// PlexGUIDs accepts both the modern list form ("Guid":[{"id":"imdb://tt1"}])
// and the legacy single string form ("guid":"com.plexapp.agents.imdb://tt1").
// Entries accumulate so that payloads carrying both keys keep every id.
type PlexGUIDs []PlexGUID

// UnmarshalJSON implements json.Unmarshaler.
func (g *PlexGUIDs) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != "" {
			*g = append(*g, PlexGUID{ID: s})
		}
		return nil
	}
	var list []PlexGUID
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*g = append(*g, list...)
	return nil
}
