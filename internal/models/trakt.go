// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package models

// ============================================================================
// Trakt API Models
// ============================================================================
// Documentation: https://trakt.docs.apiary.io/
// Only the OAuth token exchange and /sync/history are used.

// TraktWatchedAtLayout is the timestamp layout Trakt expects in watched_at.
const TraktWatchedAtLayout = "2006-01-02T15:04:05.000Z"

// TraktTokenRequest is the body of POST /oauth/token.
type TraktTokenRequest struct {
	Code         string `json:"code,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	GrantType    string `json:"grant_type"` // "authorization_code" or "refresh_token"
}

// TraktTokenResponse is the OAuth token payload.
type TraktTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// TraktIDs is the external identifier set accepted by Trakt.
// Trakt takes tvdb/tmdb as integers and imdb as a string.
type TraktIDs struct {
	IMDB string `json:"imdb,omitempty"`
	TVDB int    `json:"tvdb,omitempty"`
	TMDB int    `json:"tmdb,omitempty"`
}

// TraktHistoryRequest is the body of POST /sync/history.
type TraktHistoryRequest struct {
	Movies   []TraktHistoryMovie   `json:"movies,omitempty"`
	Shows    []TraktHistoryShow    `json:"shows,omitempty"`
	Episodes []TraktHistoryEpisode `json:"episodes,omitempty"`
}

// TraktHistoryMovie identifies a watched movie.
type TraktHistoryMovie struct {
	Title     string   `json:"title,omitempty"`
	Year      *int     `json:"year,omitempty"`
	IDs       TraktIDs `json:"ids"`
	WatchedAt string   `json:"watched_at,omitempty"`
}

// TraktHistoryEpisode identifies a watched episode directly by its ids.
type TraktHistoryEpisode struct {
	IDs       TraktIDs `json:"ids"`
	WatchedAt string   `json:"watched_at,omitempty"`
}

// TraktHistoryShow identifies watched episodes through their show.
type TraktHistoryShow struct {
	Title   string               `json:"title"`
	Year    *int                 `json:"year,omitempty"`
	IDs     TraktIDs             `json:"ids"`
	Seasons []TraktHistorySeason `json:"seasons"`
}

// TraktHistorySeason is one season inside a TraktHistoryShow.
type TraktHistorySeason struct {
	Number   int                        `json:"number"`
	Episodes []TraktHistorySeasonEpisode `json:"episodes"`
}

// TraktHistorySeasonEpisode is one episode inside a TraktHistorySeason.
type TraktHistorySeasonEpisode struct {
	Number    int    `json:"number"`
	WatchedAt string `json:"watched_at,omitempty"`
}

// TraktSyncResponse is the response from POST /sync/history.
type TraktSyncResponse struct {
	Added    TraktSyncStats `json:"added"`
	NotFound TraktNotFound  `json:"not_found"`
}

// TraktSyncStats contains counts from sync operations.
type TraktSyncStats struct {
	Movies   int `json:"movies"`
	Episodes int `json:"episodes"`
}

// TraktNotFound lists items Trakt could not match. Entries are echoed back
// as sent, so only their presence matters here.
type TraktNotFound struct {
	Movies   []TraktNotFoundItem `json:"movies"`
	Shows    []TraktNotFoundItem `json:"shows"`
	Seasons  []TraktNotFoundItem `json:"seasons"`
	Episodes []TraktNotFoundItem `json:"episodes"`
}

// TraktNotFoundItem is an unmatched entry.
type TraktNotFoundItem struct {
	IDs TraktIDs `json:"ids"`
}

// Any reports whether anything was unmatched.
func (n TraktNotFound) Any() bool {
	return len(n.Movies) > 0 || len(n.Shows) > 0 || len(n.Seasons) > 0 || len(n.Episodes) > 0
}

// TraktRateLimit is the JSON carried in the X-Ratelimit response header.
type TraktRateLimit struct {
	Name      string `json:"name"`
	Period    int    `json:"period"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Until     string `json:"until"`
}
