// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

// Package models defines the data structures shared across Watchrelay:
// the canonical media event produced by webhook adapters, the resolved
// media details consumed by tracking clients, the inbound webhook payload
// shapes, and the request/response bodies of the tracking service APIs.
package models

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// MediaType is the canonical kind of watched item.
type MediaType string

const (
	MediaTypeMovie MediaType = "movie"
	MediaTypeShow  MediaType = "show"
)

// MediaEvent is a completed playback normalized from any media manager.
//
// Title and UserKey are never empty on an event returned by an adapter.
// For shows, Title is the series title, not the episode title.
type MediaEvent struct {
	MediaType MediaType
	Title     string
	// UserKey selects the user's configured tracking services.
	// Lowercased by the adapter.
	UserKey string
	// Raw is the source payload, kept for detail extraction.
	Raw json.RawMessage
}

// IsShow reports whether the event is for a TV episode.
func (e *MediaEvent) IsShow() bool {
	return e.MediaType == MediaTypeShow
}

// MediaDetails holds the identifiers and episode coordinates resolved from
// an event's raw payload. A nil field means the source did not supply it;
// zero values are real values.
type MediaDetails struct {
	ShowTitle string
	Year      *int
	Season    *int
	Episode   *int
	TVDBID    *string
	TMDBID    *string
	IMDBID    *string
}

// IsEmpty reports whether nothing at all could be resolved.
func (d MediaDetails) IsEmpty() bool {
	return d.ShowTitle == "" && d.Year == nil && d.Season == nil && d.Episode == nil &&
		d.TVDBID == nil && d.TMDBID == nil && d.IMDBID == nil
}

// HasEpisode reports whether both season and episode numbers are known.
func (d MediaDetails) HasEpisode() bool {
	return d.Season != nil && d.Episode != nil
}

// EpisodeLabel renders "S01E05" style coordinates for logs, with "?" for
// unknown parts.
func (d MediaDetails) EpisodeLabel() string {
	return fmt.Sprintf("S%sE%s", optInt(d.Season), optInt(d.Episode))
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optInt(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%02d", *v)
}

// ParseIntPtr parses a decimal string into an *int; blank or malformed
// input yields nil.
func ParseIntPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
