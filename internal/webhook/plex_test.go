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

const plexEpisodeScrobble = `{
	"event": "media.scrobble",
	"user": true,
	"owner": true,
	"Account": {"id": 1, "title": "Alice"},
	"Server": {"title": "Home", "uuid": "abc"},
	"Player": {"local": true, "title": "TV"},
	"Metadata": {
		"librarySectionType": "show",
		"type": "episode",
		"title": "Pilot",
		"grandparentTitle": "S.W.A.T. (2017)",
		"parentIndex": 1,
		"index": 2,
		"year": 2017,
		"Guid": [
			{"id": "imdb://tt6111130"},
			{"id": "tmdb://1402051"},
			{"id": "tvdb://6234567"}
		]
	}
}`

const plexMovieScrobble = `{
	"event": "media.scrobble",
	"Account": {"title": "bob"},
	"Metadata": {
		"librarySectionType": "movie",
		"type": "movie",
		"title": "Test Movie",
		"Guid": [{"id": "tmdb://456"}, {"id": "imdb://tt1234567"}]
	}
}`

func TestPlexAdapter_ParseEpisode(t *testing.T) {
	t.Parallel()

	a := NewPlexAdapter()
	event := a.Parse(context.Background(), []byte(plexEpisodeScrobble))
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.MediaType != models.MediaTypeShow {
		t.Errorf("MediaType = %q, want show", event.MediaType)
	}
	if event.Title != "S.W.A.T. (2017)" {
		t.Errorf("Title = %q, want series title", event.Title)
	}
	if event.UserKey != "alice" {
		t.Errorf("UserKey = %q, want lowercased 'alice'", event.UserKey)
	}

	d := a.ExtractDetails(context.Background(), event)
	if d.ShowTitle != "S.W.A.T. (2017)" {
		t.Errorf("ShowTitle = %q", d.ShowTitle)
	}
	if d.Season == nil || *d.Season != 1 || d.Episode == nil || *d.Episode != 2 {
		t.Errorf("episode = %s, want S01E02", d.EpisodeLabel())
	}
	if d.Year == nil || *d.Year != 2017 {
		t.Errorf("Year = %v, want 2017", d.Year)
	}
	if models.Deref(d.TVDBID) != "6234567" || models.Deref(d.TMDBID) != "1402051" || models.Deref(d.IMDBID) != "tt6111130" {
		t.Errorf("ids = %q %q %q", models.Deref(d.TVDBID), models.Deref(d.TMDBID), models.Deref(d.IMDBID))
	}
}

func TestPlexAdapter_ParseMovie(t *testing.T) {
	t.Parallel()

	a := NewPlexAdapter()
	event := a.Parse(context.Background(), []byte(plexMovieScrobble))
	if event == nil {
		t.Fatal("expected event, got nil")
	}
	if event.MediaType != models.MediaTypeMovie || event.Title != "Test Movie" {
		t.Errorf("event = %+v", event)
	}

	d := a.ExtractDetails(context.Background(), event)
	if d.Season != nil || d.Episode != nil {
		t.Errorf("movie should have no episode coordinates, got %s", d.EpisodeLabel())
	}
	if d.Year != nil {
		t.Errorf("Year = %v, want nil when absent", *d.Year)
	}
	if d.TVDBID != nil {
		t.Errorf("TVDBID = %q, want nil", *d.TVDBID)
	}
	if models.Deref(d.TMDBID) != "456" || models.Deref(d.IMDBID) != "tt1234567" {
		t.Errorf("ids = %q %q", models.Deref(d.TMDBID), models.Deref(d.IMDBID))
	}
}

func TestPlexAdapter_ParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"play event", `{"event":"media.play","Account":{"title":"a"},"Metadata":{"librarySectionType":"movie","title":"M"}}`},
		{"pause event", `{"event":"media.pause","Account":{"title":"a"},"Metadata":{"librarySectionType":"movie","title":"M"}}`},
		{"stop event", `{"event":"media.stop","Account":{"title":"a"},"Metadata":{"librarySectionType":"movie","title":"M"}}`},
		{"missing metadata", `{"event":"media.scrobble","Account":{"title":"a"}}`},
		{"missing account", `{"event":"media.scrobble","Metadata":{"librarySectionType":"movie","title":"M"}}`},
		{"music library", `{"event":"media.scrobble","Account":{"title":"a"},"Metadata":{"librarySectionType":"artist","title":"Song"}}`},
		{"show without series title", `{"event":"media.scrobble","Account":{"title":"a"},"Metadata":{"librarySectionType":"show","title":"Pilot"}}`},
		{"movie without title", `{"event":"media.scrobble","Account":{"title":"a"},"Metadata":{"librarySectionType":"movie"}}`},
	}

	a := NewPlexAdapter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := a.Parse(context.Background(), []byte(tt.payload)); got != nil {
				t.Errorf("Parse() = %+v, want nil", got)
			}
		})
	}
}

func TestPlexAdapter_MissingEpisodeCoordinatesStayNil(t *testing.T) {
	t.Parallel()

	payload := `{"event":"media.scrobble","Account":{"title":"a"},
		"Metadata":{"librarySectionType":"show","grandparentTitle":"Show","Guid":[{"id":"tvdb://1"}]}}`

	a := NewPlexAdapter()
	event := a.Parse(context.Background(), []byte(payload))
	if event == nil {
		t.Fatal("expected event")
	}
	d := a.ExtractDetails(context.Background(), event)
	if d.Season != nil || d.Episode != nil {
		t.Errorf("expected nil season/episode, got %s", d.EpisodeLabel())
	}
}

func TestParseExternalID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		guid   string
		scheme string
		value  string
		ok     bool
	}{
		{"tvdb://123", SchemeTVDB, "123", true},
		{"tmdb://456", SchemeTMDB, "456", true},
		{"imdb://tt1234567", SchemeIMDB, "tt1234567", true},
		{"com.plexapp.agents.imdb://tt0111161?lang=en", SchemeIMDB, "tt0111161", true},
		{"com.plexapp.agents.thetvdb://81189/1/3?lang=en", "", "", false},
		{"plex://movie/5d776825880197001ec967c2", "", "", false},
		{"tvdb://", "", "", false},
		{"garbage", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.guid, func(t *testing.T) {
			t.Parallel()
			scheme, value, ok := ParseExternalID(tt.guid)
			if scheme != tt.scheme || value != tt.value || ok != tt.ok {
				t.Errorf("ParseExternalID(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.guid, scheme, value, ok, tt.scheme, tt.value, tt.ok)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	if _, ok := r.Lookup("PLEX"); !ok {
		t.Error("lookup should be case-insensitive")
	}
	if _, ok := r.Lookup("emby"); ok {
		t.Error("emby is not registered")
	}
	names := r.Names()
	if len(names) != 2 || names[0] != "jellyfin" || names[1] != "plex" {
		t.Errorf("Names() = %v", names)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	if got := SanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("SanitizeLogValue() = %q", got)
	}
}
