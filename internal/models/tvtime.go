// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package models

// ============================================================================
// TV Time API Models
// ============================================================================
// TV Time has no public API; the web app talks to several backends through
// a "sidecar" proxy (https://app.tvtime.com/sidecar?o=<upstream url>).

// TVTimeLoginRequest is the body of the sidecar login call.
type TVTimeLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TVTimeLoginResponse wraps the account tokens.
type TVTimeLoginResponse struct {
	Data struct {
		JWTToken        string `json:"jwt_token"`
		JWTRefreshToken string `json:"jwt_refresh_token"`
	} `json:"data"`
	Message string `json:"message"`
}

// TVTimeErrorResponse is returned on rejected logins.
type TVTimeErrorResponse struct {
	Message string `json:"message"`
}

// TVTimeEpisodeWatchResponse is the watched_episodes response.
type TVTimeEpisodeWatchResponse struct {
	Result string `json:"result"` // "OK" on success
	Number *int   `json:"number"`
	Season struct {
		Number *int `json:"number"`
	} `json:"season"`
	Show struct {
		Name string `json:"name"`
	} `json:"show"`
}

// TVTimeSearchResponse is the search.tvtime.com response.
type TVTimeSearchResponse struct {
	Status string             `json:"status"` // "success"
	Data   []TVTimeSearchItem `json:"data"`
}

// TVTimeSearchItem is a search hit; Type is "movie" or "series".
type TVTimeSearchItem struct {
	UUID string `json:"uuid"`
	Type string `json:"type"`
	Name string `json:"name"`
}

// FirstMovieUUID returns the uuid of the first movie hit.
func (r *TVTimeSearchResponse) FirstMovieUUID() string {
	for _, item := range r.Data {
		if item.Type == "movie" && item.UUID != "" {
			return item.UUID
		}
	}
	return ""
}

// TVTimeStatusResponse is the msapi tracking response.
type TVTimeStatusResponse struct {
	Status string `json:"status"` // "success"
}
