// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package webhook

import (
	"context"
	"testing"

	"github.com/tomtom215/watchrelay/internal/models"
)

func TestJellyfinAdapter_ParseEpisode(t *testing.T) {
	t.Parallel()

	payload := `{
		"event": "PlaybackStop",
		"played_to_completion": "True",
		"username": "Alice",
		"item_type": "Episode",
		"title": "Pilot",
		"series_name": "Show Name",
		"season_number": "1",
		"episode_number": "4",
		"year": "2017",
		"tvdb_id": "81189",
		"tmdb_id": "",
		"imdb_id": "tt0959621"
	}`

	a := NewJellyfinAdapter()
	event := a.Parse(context.Background(), []byte(payload))
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.MediaType != models.MediaTypeShow || event.Title != "Show Name" || event.UserKey != "alice" {
		t.Errorf("event = %+v", event)
	}

	d := a.ExtractDetails(context.Background(), event)
	if d.ShowTitle != "Show Name" {
		t.Errorf("ShowTitle = %q", d.ShowTitle)
	}
	if d.Season == nil || *d.Season != 1 || d.Episode == nil || *d.Episode != 4 {
		t.Errorf("episode = %s, want S01E04", d.EpisodeLabel())
	}
	if d.Year == nil || *d.Year != 2017 {
		t.Errorf("Year = %v", d.Year)
	}
	if models.Deref(d.TVDBID) != "81189" || models.Deref(d.IMDBID) != "tt0959621" {
		t.Errorf("ids = %q %q", models.Deref(d.TVDBID), models.Deref(d.IMDBID))
	}
	if d.TMDBID != nil {
		t.Errorf("blank tmdb_id should be nil, got %q", *d.TMDBID)
	}
}

func TestJellyfinAdapter_ParseMovie(t *testing.T) {
	t.Parallel()

	payload := `{"event":"PlaybackStop","played_to_completion":"True","username":"alice",
		"item_type":"Movie","title":"Test Movie","tmdb_id":"456","imdb_id":"tt1234567"}`

	a := NewJellyfinAdapter()
	event := a.Parse(context.Background(), []byte(payload))
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.MediaType != models.MediaTypeMovie || event.Title != "Test Movie" {
		t.Errorf("event = %+v", event)
	}

	d := a.ExtractDetails(context.Background(), event)
	if d.ShowTitle != "Test Movie" || models.Deref(d.TMDBID) != "456" || models.Deref(d.IMDBID) != "tt1234567" {
		t.Errorf("details = %+v", d)
	}
	if d.Season != nil || d.Episode != nil || d.Year != nil {
		t.Errorf("expected nil coordinates, got %+v", d)
	}
}

func TestJellyfinAdapter_StockTemplateKeys(t *testing.T) {
	t.Parallel()

	payload := `{"NotificationType":"PlaybackStop","PlayedToCompletion":true,
		"NotificationUsername":"Carol","ItemType":"Episode","Name":"Pilot",
		"SeriesName":"Other Show","SeasonNumber":0,"EpisodeNumber":1,"Provider_tvdb":"42"}`

	a := NewJellyfinAdapter()
	event := a.Parse(context.Background(), []byte(payload))
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.UserKey != "carol" || event.Title != "Other Show" {
		t.Errorf("event = %+v", event)
	}

	d := a.ExtractDetails(context.Background(), event)
	if d.Season == nil || *d.Season != 0 {
		t.Errorf("season 0 must be preserved, got %v", d.Season)
	}
	if models.Deref(d.TVDBID) != "42" {
		t.Errorf("tvdb = %q", models.Deref(d.TVDBID))
	}
}

func TestJellyfinAdapter_ParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `[1,2`},
		{"playback start", `{"event":"PlaybackStart","played_to_completion":"True","username":"a","item_type":"Movie","title":"M"}`},
		{"partial watch", `{"event":"PlaybackStop","played_to_completion":"False","username":"a","item_type":"Movie","title":"M"}`},
		{"missing completion flag", `{"event":"PlaybackStop","username":"a","item_type":"Movie","title":"M"}`},
		{"missing username", `{"event":"PlaybackStop","played_to_completion":"True","item_type":"Movie","title":"M"}`},
		{"audio item", `{"event":"PlaybackStop","played_to_completion":"True","username":"a","item_type":"Audio","title":"Song"}`},
		{"episode without series", `{"event":"PlaybackStop","played_to_completion":"True","username":"a","item_type":"Episode","title":"Pilot"}`},
		{"movie without title", `{"event":"PlaybackStop","played_to_completion":"True","username":"a","item_type":"Movie"}`},
	}

	a := NewJellyfinAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := a.Parse(context.Background(), []byte(tt.payload)); got != nil {
				t.Errorf("Parse() = %+v, want nil", got)
			}
		})
	}
}
