// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
	"github.com/tomtom215/watchrelay/internal/models"
	"github.com/tomtom215/watchrelay/internal/retry"
)

// TraktService is the registry name of the Trakt client.
const TraktService = "trakt"

// defaultTraktExpiry applies when a token response omits expires_in.
const defaultTraktExpiry = 7200 * time.Second

// syncResult is how Trakt answered a history submission.
type syncResult int

const (
	syncWatched syncResult = iota
	syncDuplicate
	syncNotFound
)

func (r syncResult) String() string {
	switch r {
	case syncWatched:
		return "watched"
	case syncDuplicate:
		return "duplicate"
	default:
		return "not_found"
	}
}

// TraktClient marks playback as watched in one user's Trakt history.
type TraktClient struct {
	user    string
	cfg     config.TraktConfig
	creds   config.TraktCredentials
	req     *requester
	session *Session
	policy  retry.Policy
	now     func() time.Time
}

// newTraktRequester creates the requester shared by every Trakt client.
func newTraktRequester(cfg config.TraktConfig, cb config.CircuitBreakerConfig) *requester {
	r := &requester{
		service:    TraktService,
		httpClient: newHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
		limiter:    newLimiter(cfg.RateLimitPerSecond),
		breaker:    newBreaker("trakt-api", cb),
		sleep:      sleepContext,
	}
	r.onRateLimit = logTraktRateLimit
	return r
}

// newTraktClient creates a Trakt client for user.
func newTraktClient(user string, creds config.TraktCredentials, cfg config.TraktConfig, req *requester, policy retry.Policy) *TraktClient {
	c := &TraktClient{
		user:   user,
		cfg:    cfg,
		creds:  creds,
		req:    req,
		policy: policy,
		now:    time.Now,
	}
	c.session = NewSession(TraktService, user, &traktAuth{client: c})
	if creds.RefreshToken != "" {
		// Expired access token, so the first call refreshes.
		c.session.Seed(Token{RefreshToken: creds.RefreshToken})
	}
	return c
}

// Name implements Client.
func (c *TraktClient) Name() string { return TraktService }

// Session returns the client's session.
func (c *TraktClient) Session() *Session { return c.session }

// Login implements Client.
func (c *TraktClient) Login(ctx context.Context) error {
	return c.session.Login(ctx)
}

// AuthorizeURL returns the page where the user grants a new authorization
// code.
func AuthorizeURL(cfg config.TraktConfig, creds config.TraktCredentials) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", creds.ClientID)
	q.Set("redirect_uri", creds.RedirectURI)
	return cfg.AuthorizeURL + "?" + q.Encode()
}

// traktAuth performs the OAuth code and refresh token grants.
type traktAuth struct {
	client *TraktClient
}

func (a *traktAuth) Login(ctx context.Context) (Token, error) {
	c := a.client
	if c.creds.Code == "" {
		return Token{}, &AuthError{
			Service: TraktService,
			Message: "no authorization code configured",
			Hint:    AuthorizeURL(c.cfg, c.creds),
		}
	}
	return a.exchange(ctx, "trakt.login", models.TraktTokenRequest{
		Code:         c.creds.Code,
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		RedirectURI:  c.creds.RedirectURI,
		GrantType:    "authorization_code",
	})
}

func (a *traktAuth) Refresh(ctx context.Context, current Token) (Token, error) {
	c := a.client
	return a.exchange(ctx, "trakt.refresh", models.TraktTokenRequest{
		RefreshToken: current.RefreshToken,
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		RedirectURI:  c.creds.RedirectURI,
		GrantType:    "refresh_token",
	})
}

func (a *traktAuth) exchange(ctx context.Context, op string, body models.TraktTokenRequest) (Token, error) {
	c := a.client
	cfg := requestConfig{
		method: http.MethodPost,
		url:    c.cfg.BaseURL + "/oauth/token",
		body:   body,
	}

	return retry.Wrap(c.policy, op, func(ctx context.Context) (Token, error) {
		resp, err := c.req.do(ctx, cfg)
		if err != nil {
			return Token{}, classify(err)
		}

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return Token{}, retry.Permanent(&AuthError{
				Service: TraktService,
				Message: fmt.Sprintf("%s grant rejected with %d: authorization code expired or invalid", body.GrantType, resp.StatusCode),
				Hint:    AuthorizeURL(c.cfg, c.creds),
			})
		default:
			return Token{}, classify(resp.statusError(TraktService, cfg))
		}

		var tr models.TraktTokenResponse
		if err := resp.decode(&tr); err != nil {
			return Token{}, retry.Permanent(err)
		}
		if tr.AccessToken == "" {
			return Token{}, retry.Permanent(fmt.Errorf("%s: token response without access_token", TraktService))
		}

		expiresIn := time.Duration(tr.ExpiresIn) * time.Second
		if expiresIn <= 0 {
			expiresIn = defaultTraktExpiry
		}
		return Token{
			AccessToken:  tr.AccessToken,
			RefreshToken: tr.RefreshToken,
			ExpiresAt:    c.now().Add(expiresIn),
		}, nil
	})(ctx)
}

// WatchEpisode implements Client. An episode with an IMDB id is first
// submitted directly; otherwise, or when Trakt does not know that id, it is
// submitted through its show, season and number.
func (c *TraktClient) WatchEpisode(ctx context.Context, req EpisodeRequest) error {
	logger := logging.Ctx(ctx).With().Str("service", TraktService).Str("show", req.ShowTitle).Str("episode", req.label()).Logger()

	if req.ShowTitle == "" || req.Season == nil || req.Episode == nil {
		logger.Error().Msg("Missing required show information (title, season, episode)")
		metrics.RecordWatch(TraktService, string(models.MediaTypeShow), "skipped")
		return nil
	}

	watchedAt := c.watchedAt()
	ids := traktIDs(req.TVDBID, req.TMDBID, req.IMDBID)

	if ids.IMDB != "" {
		result, err := c.postHistory(ctx, models.TraktHistoryRequest{
			Episodes: []models.TraktHistoryEpisode{{
				IDs:       models.TraktIDs{IMDB: ids.IMDB},
				WatchedAt: watchedAt,
			}},
		})
		if err != nil {
			metrics.RecordWatch(TraktService, string(models.MediaTypeShow), "error")
			return err
		}
		if result != syncNotFound {
			c.logEpisodeResult(&logger, result)
			return nil
		}
		logger.Debug().Str("imdb", ids.IMDB).Msg("Episode id unknown to Trakt, trying show lookup")
	}

	// The tvdb and tmdb ids belong to the episode, not the series, so the
	// show is matched by title, year and imdb only.
	title, year := ResolveShowYear(req.ShowTitle, req.Year)
	result, err := c.postHistory(ctx, models.TraktHistoryRequest{
		Shows: []models.TraktHistoryShow{{
			Title: title,
			Year:  year,
			IDs:   models.TraktIDs{IMDB: ids.IMDB},
			Seasons: []models.TraktHistorySeason{{
				Number: *req.Season,
				Episodes: []models.TraktHistorySeasonEpisode{{
					Number:    *req.Episode,
					WatchedAt: watchedAt,
				}},
			}},
		}},
	})
	if err != nil {
		metrics.RecordWatch(TraktService, string(models.MediaTypeShow), "error")
		return err
	}
	c.logEpisodeResult(&logger, result)
	return nil
}

func (c *TraktClient) logEpisodeResult(logger *zerolog.Logger, result syncResult) {
	metrics.RecordWatch(TraktService, string(models.MediaTypeShow), result.String())
	switch result {
	case syncWatched:
		logger.Info().Msg("Successfully marked episode as watched")
	case syncDuplicate:
		logger.Info().Msg("Episode was already marked as watched recently")
	default:
		logger.Error().Msg("Episode not found in Trakt database")
	}
}

// WatchMovie implements Client.
func (c *TraktClient) WatchMovie(ctx context.Context, req MovieRequest) error {
	logger := logging.Ctx(ctx).With().Str("service", TraktService).Str("movie", req.Title).Logger()

	ids := traktIDs(nil, req.TMDBID, req.IMDBID)
	if req.Title == "" || (ids.TMDB == 0 && ids.IMDB == "") {
		logger.Warn().Msg("Skipping movie watch: missing title or ID")
		metrics.RecordWatch(TraktService, string(models.MediaTypeMovie), "skipped")
		return nil
	}

	result, err := c.postHistory(ctx, models.TraktHistoryRequest{
		Movies: []models.TraktHistoryMovie{{
			Title:     req.Title,
			Year:      req.Year,
			IDs:       ids,
			WatchedAt: c.watchedAt(),
		}},
	})
	if err != nil {
		metrics.RecordWatch(TraktService, string(models.MediaTypeMovie), "error")
		return err
	}

	metrics.RecordWatch(TraktService, string(models.MediaTypeMovie), result.String())
	switch result {
	case syncWatched:
		logger.Info().Msg("Successfully marked movie as watched")
	case syncDuplicate:
		logger.Info().Msg("Movie was already marked as watched recently")
	default:
		logger.Error().Int("tmdb", ids.TMDB).Str("imdb", ids.IMDB).Msg("Movie not found in Trakt database")
	}
	return nil
}

// postHistory submits body to /sync/history.
func (c *TraktClient) postHistory(ctx context.Context, body models.TraktHistoryRequest) (syncResult, error) {
	return retry.Wrap(c.policy, "trakt.history", func(ctx context.Context) (syncResult, error) {
		resp, cfg, err := c.req.doAuthorized(ctx, c.session, func(token Token) requestConfig {
			return requestConfig{
				method: http.MethodPost,
				url:    c.cfg.BaseURL + "/sync/history",
				body:   body,
				bearer: token.AccessToken,
				header: http.Header{
					"trakt-api-version": {"2"},
					"trakt-api-key":     {c.creds.ClientID},
				},
			}
		})
		if err != nil {
			return syncNotFound, classifySession(err)
		}

		switch {
		case resp.StatusCode == http.StatusConflict:
			return syncDuplicate, nil
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return syncNotFound, classify(resp.statusError(TraktService, cfg))
		}

		var sync models.TraktSyncResponse
		if err := resp.decode(&sync); err != nil {
			return syncNotFound, retry.Permanent(err)
		}
		if sync.NotFound.Any() {
			logging.Ctx(ctx).Debug().
				Int("movies", len(sync.NotFound.Movies)).
				Int("shows", len(sync.NotFound.Shows)).
				Int("seasons", len(sync.NotFound.Seasons)).
				Int("episodes", len(sync.NotFound.Episodes)).
				Msg("Trakt reported unmatched items")
			return syncNotFound, nil
		}
		return syncWatched, nil
	})(ctx)
}

func (c *TraktClient) watchedAt() string {
	return c.now().UTC().Format(models.TraktWatchedAtLayout)
}

// traktIDs converts string ids to Trakt's id set. Non-numeric TVDB and
// TMDB ids are dropped.
func traktIDs(tvdb, tmdb, imdb *string) models.TraktIDs {
	var ids models.TraktIDs
	if n, err := strconv.Atoi(strings.TrimSpace(models.Deref(tvdb))); err == nil && n > 0 {
		ids.TVDB = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(models.Deref(tmdb))); err == nil && n > 0 {
		ids.TMDB = n
	}
	ids.IMDB = strings.TrimSpace(models.Deref(imdb))
	return ids
}

// logTraktRateLimit logs which Trakt limit was hit.
func logTraktRateLimit(ctx context.Context, resp *http.Response) {
	name := "unknown limit"
	if header := resp.Header.Get("X-Ratelimit"); header != "" {
		var rl models.TraktRateLimit
		if err := json.Unmarshal([]byte(header), &rl); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("service", TraktService).Msg("Could not parse rate limit header")
		} else if rl.Name != "" {
			name = rl.Name
		}
	}
	logging.Ctx(ctx).Warn().
		Str("service", TraktService).
		Str("limit", name).
		Str("retry_after", resp.Header.Get("Retry-After")).
		Msg("Trakt rate limit reached")
}
