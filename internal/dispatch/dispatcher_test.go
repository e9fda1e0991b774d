// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/watchrelay/internal/metrics"
	"github.com/tomtom215/watchrelay/internal/models"
	"github.com/tomtom215/watchrelay/internal/tracking"
	"github.com/tomtom215/watchrelay/internal/webhook"
)

// recordingClient captures the requests it receives.
type recordingClient struct {
	name string
	err  error
	boom bool

	mu       sync.Mutex
	episodes []tracking.EpisodeRequest
	movies   []tracking.MovieRequest
	ctxErr   error
}

func (c *recordingClient) Name() string                { return c.name }
func (c *recordingClient) Login(context.Context) error { return nil }

func (c *recordingClient) WatchEpisode(ctx context.Context, req tracking.EpisodeRequest) error {
	c.mu.Lock()
	c.episodes = append(c.episodes, req)
	c.ctxErr = ctx.Err()
	c.mu.Unlock()
	if c.boom {
		panic("nil map write")
	}
	return c.err
}

func (c *recordingClient) WatchMovie(ctx context.Context, req tracking.MovieRequest) error {
	c.mu.Lock()
	c.movies = append(c.movies, req)
	c.ctxErr = ctx.Err()
	c.mu.Unlock()
	if c.boom {
		panic("nil map write")
	}
	return c.err
}

const jellyfinMovie = `{"event":"PlaybackStop","played_to_completion":"True","username":"Alice",
	"item_type":"Movie","title":"Test Movie","tmdb_id":"456","imdb_id":"tt1234567"}`

const plexEpisode = `{
	"event": "media.scrobble",
	"Account": {"title": "alice"},
	"Metadata": {
		"librarySectionType": "show",
		"title": "Pilot",
		"grandparentTitle": "Lost",
		"parentIndex": 1,
		"index": 1,
		"Guid": [{"id": "tvdb://127131"}]
	}
}`

func TestHandle_MovieEndToEnd(t *testing.T) {
	t.Parallel()

	client := &recordingClient{name: "fake"}
	d := New(webhook.DefaultRegistry(), map[string][]tracking.Client{"alice": {client}})

	if got := d.Handle(context.Background(), "jellyfin", []byte(jellyfinMovie)); got != OutcomeAccepted {
		t.Fatalf("Handle() = %s, want accepted", got)
	}

	if len(client.movies) != 1 {
		t.Fatalf("WatchMovie calls = %d, want 1", len(client.movies))
	}
	m := client.movies[0]
	if m.Title != "Test Movie" || models.Deref(m.TMDBID) != "456" || models.Deref(m.IMDBID) != "tt1234567" {
		t.Errorf("movie request = %+v", m)
	}
	if len(client.episodes) != 0 {
		t.Errorf("unexpected WatchEpisode calls: %d", len(client.episodes))
	}
}

func TestHandle_EpisodeRoutesToWatchEpisode(t *testing.T) {
	t.Parallel()

	client := &recordingClient{name: "fake"}
	d := New(webhook.DefaultRegistry(), map[string][]tracking.Client{"alice": {client}})

	if got := d.Handle(context.Background(), "PLEX", []byte(plexEpisode)); got != OutcomeAccepted {
		t.Fatalf("Handle() = %s, want accepted", got)
	}
	if len(client.episodes) != 1 {
		t.Fatalf("WatchEpisode calls = %d, want 1", len(client.episodes))
	}
	e := client.episodes[0]
	if e.ShowTitle != "Lost" || *e.Season != 1 || *e.Episode != 1 || models.Deref(e.TVDBID) != "127131" {
		t.Errorf("episode request = %+v", e)
	}
}

func TestHandle_IsolatesFailures(t *testing.T) {
	t.Parallel()

	failing := &recordingClient{name: "isolate-failing", err: fmt.Errorf("watch: %w", tracking.ErrRetryExhausted)}
	panicking := &recordingClient{name: "isolate-panicking", boom: true}
	healthy := &recordingClient{name: "isolate-healthy"}
	d := New(webhook.DefaultRegistry(), map[string][]tracking.Client{"alice": {failing, panicking, healthy}})

	if got := d.Handle(context.Background(), "jellyfin", []byte(jellyfinMovie)); got != OutcomeAccepted {
		t.Fatalf("Handle() = %s, want accepted despite failures", got)
	}

	for _, c := range []*recordingClient{failing, panicking, healthy} {
		if len(c.movies) != 1 {
			t.Errorf("%s: WatchMovie calls = %d, want 1", c.name, len(c.movies))
		}
	}
	if got := testutil.ToFloat64(metrics.DispatchFailures.WithLabelValues("isolate-failing", "rate_limited")); got != 1 {
		t.Errorf("rate_limited failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.DispatchFailures.WithLabelValues("isolate-panicking", "panic")); got != 1 {
		t.Errorf("panic failures = %v, want 1", got)
	}
}

func TestHandle_Empty(t *testing.T) {
	t.Parallel()

	client := &recordingClient{name: "fake"}
	d := New(webhook.DefaultRegistry(), map[string][]tracking.Client{"alice": {client}})

	tests := []struct {
		name    string
		manager string
		payload string
	}{
		{"unknown manager", "emby", jellyfinMovie},
		{"not actionable", "jellyfin", `{"event":"PlaybackStart","username":"alice","item_type":"Movie","title":"M"}`},
		{"malformed", "plex", `{not json`},
		{"unconfigured user", "jellyfin", `{"event":"PlaybackStop","played_to_completion":"True","username":"mallory","item_type":"Movie","title":"Test Movie","tmdb_id":"456"}`},
	}

	for _, tt := range tests {
		if got := d.Handle(context.Background(), tt.manager, []byte(tt.payload)); got != OutcomeEmpty {
			t.Errorf("%s: Handle() = %s, want empty", tt.name, got)
		}
	}
	if len(client.movies)+len(client.episodes) != 0 {
		t.Error("client must not be called for empty outcomes")
	}
}

func TestHandle_DetachesCancellation(t *testing.T) {
	t.Parallel()

	client := &recordingClient{name: "fake"}
	d := New(webhook.DefaultRegistry(), map[string][]tracking.Client{"alice": {client}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := d.Handle(ctx, "jellyfin", []byte(jellyfinMovie)); got != OutcomeAccepted {
		t.Fatalf("Handle() = %s", got)
	}
	if client.ctxErr != nil {
		t.Errorf("client saw ctx.Err() = %v, want detached context", client.ctxErr)
	}
}

func TestFailureKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w: %w", tracking.ErrSessionFailed, &tracking.AuthError{}), "session_failed"},
		{&tracking.AuthError{}, "auth"},
		{tracking.ErrCircuitOpen, "circuit_open"},
		{context.DeadlineExceeded, "timeout"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := failureKind(tt.err); got != tt.want {
			t.Errorf("failureKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
