// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package tracking implements the watch history services playback is
// relayed to.
//
// Every service is a Client bound to one user. Clients own a Session that
// logs in lazily, share one requester per service for pacing and circuit
// breaking, and never treat "already watched" or "unknown title" answers as
// errors: those are logged and dropped.
package tracking

import (
	"context"

	"github.com/tomtom215/watchrelay/internal/models"
)

// Client records completed playback for one user on one service.
type Client interface {
	// Name is the service name, e.g. "trakt".
	Name() string
	// Login authenticates eagerly. Non-retryable credential failures
	// match ErrAuthentication.
	Login(ctx context.Context) error
	// WatchEpisode marks an episode as watched. Requests missing what the
	// service needs to identify the episode are logged and skipped.
	WatchEpisode(ctx context.Context, req EpisodeRequest) error
	// WatchMovie marks a movie as watched.
	WatchMovie(ctx context.Context, req MovieRequest) error
}

// EpisodeRequest identifies a watched episode.
type EpisodeRequest struct {
	ShowTitle string
	Year      *int
	Season    *int
	Episode   *int
	TVDBID    *string
	TMDBID    *string
	IMDBID    *string
}

// MovieRequest identifies a watched movie.
type MovieRequest struct {
	Title  string
	Year   *int
	TVDBID *string
	TMDBID *string
	IMDBID *string
}

// NewEpisodeRequest builds an EpisodeRequest from resolved details.
func NewEpisodeRequest(d models.MediaDetails) EpisodeRequest {
	return EpisodeRequest{
		ShowTitle: d.ShowTitle,
		Year:      d.Year,
		Season:    d.Season,
		Episode:   d.Episode,
		TVDBID:    d.TVDBID,
		TMDBID:    d.TMDBID,
		IMDBID:    d.IMDBID,
	}
}

// NewMovieRequest builds a MovieRequest from resolved details. The event
// title is used when the details carry none.
func NewMovieRequest(event *models.MediaEvent, d models.MediaDetails) MovieRequest {
	title := d.ShowTitle
	if title == "" && event != nil {
		title = event.Title
	}
	return MovieRequest{
		Title:  title,
		Year:   d.Year,
		TVDBID: d.TVDBID,
		TMDBID: d.TMDBID,
		IMDBID: d.IMDBID,
	}
}

// label formats the episode coordinates for logs.
func (r EpisodeRequest) label() string {
	return models.MediaDetails{Season: r.Season, Episode: r.Episode}.EpisodeLabel()
}
