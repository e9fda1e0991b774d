// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/metrics"
	"github.com/tomtom215/watchrelay/internal/models"
	"github.com/tomtom215/watchrelay/internal/retry"
)

// TVTimeService is the registry name of the TV Time client.
const TVTimeService = "tvtime"

// Upstream endpoints reached through the TV Time sidecar proxy.
const (
	tvtimeEpisodeUpstream  = "https://api2.tozelabs.com/v2/watched_episodes/episode/"
	tvtimeSearchUpstream   = "https://search.tvtime.com/v1/search/series,movie"
	tvtimeTrackingUpstream = "https://msapi.tvtime.com/prod/v1/tracking/"
)

// TVTimeClient marks playback as watched on one user's TV Time account.
type TVTimeClient struct {
	user    string
	cfg     config.TVTimeConfig
	creds   config.TVTimeCredentials
	tokens  TokenSource
	req     *requester
	session *Session
	policy  retry.Policy
}

// newTVTimeRequester creates the requester shared by every TV Time client.
func newTVTimeRequester(cfg config.TVTimeConfig, cb config.CircuitBreakerConfig) *requester {
	return &requester{
		service:    TVTimeService,
		httpClient: newHTTPClient(cfg.ConnectTimeout, cfg.RequestTimeout),
		limiter:    newLimiter(cfg.RateLimitPerSecond),
		breaker:    newBreaker("tvtime-api", cb),
		sleep:      sleepContext,
	}
}

// newTVTimeTokenSource picks the user's static token, the shared static
// token, or the token command, in that order.
func newTVTimeTokenSource(cfg config.TVTimeConfig, creds config.TVTimeCredentials) TokenSource {
	switch {
	case creds.JWTToken != "":
		return StaticTokenSource(creds.JWTToken)
	case cfg.JWTToken != "":
		return StaticTokenSource(cfg.JWTToken)
	default:
		return NewCommandTokenSource(cfg.TokenCommand, cfg.TokenAttempts, cfg.TokenDelay, cfg.TokenStep)
	}
}

// newTVTimeClient creates a TV Time client for user.
func newTVTimeClient(user string, creds config.TVTimeCredentials, cfg config.TVTimeConfig, tokens TokenSource, req *requester, policy retry.Policy) *TVTimeClient {
	c := &TVTimeClient{
		user:   user,
		cfg:    cfg,
		creds:  creds,
		tokens: tokens,
		req:    req,
		policy: policy,
	}
	c.session = NewSession(TVTimeService, user, &tvtimeAuth{client: c})
	return c
}

// Name implements Client.
func (c *TVTimeClient) Name() string { return TVTimeService }

// Session returns the client's session.
func (c *TVTimeClient) Session() *Session { return c.session }

// Login implements Client.
func (c *TVTimeClient) Login(ctx context.Context) error {
	return c.session.Login(ctx)
}

// sidecarURL addresses upstream through the sidecar proxy at app.
func sidecarURL(app, upstream string, params url.Values) string {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("o", upstream)
	return strings.TrimRight(app, "/") + "/sidecar?" + q.Encode()
}

// tvtimeAuth logs in with the account credentials. TV Time has no
// refresh grant, so a refresh is a new login.
type tvtimeAuth struct {
	client *TVTimeClient
}

func (a *tvtimeAuth) Refresh(ctx context.Context, _ Token) (Token, error) {
	return a.Login(ctx)
}

func (a *tvtimeAuth) Login(ctx context.Context) (Token, error) {
	c := a.client

	appToken, err := c.tokens.Token(ctx)
	if err != nil {
		return Token{}, err
	}

	cfg := requestConfig{
		method: http.MethodPost,
		url:    sidecarURL(c.cfg.AuthAppURL, c.cfg.LoginURL, nil),
		body:   models.TVTimeLoginRequest{Username: c.creds.Username, Password: c.creds.Password},
		bearer: appToken,
	}

	return retry.Wrap(c.policy, "tvtime.login", func(ctx context.Context) (Token, error) {
		resp, err := c.req.do(ctx, cfg)
		if err != nil {
			return Token{}, classify(err)
		}

		switch {
		case resp.StatusCode == http.StatusBadRequest:
			msg := "invalid credentials"
			var errResp models.TVTimeErrorResponse
			if resp.decode(&errResp) == nil && errResp.Message != "" {
				msg = errResp.Message
			}
			return Token{}, retry.Permanent(&AuthError{Service: TVTimeService, Message: msg})
		case resp.StatusCode == http.StatusUnauthorized:
			return Token{}, retry.Permanent(&AuthError{
				Service: TVTimeService,
				Message: "invalid username or password",
				Hint:    "check users.<name>.tvtime.username and password",
			})
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return Token{}, classify(resp.statusError(TVTimeService, cfg))
		}

		var login models.TVTimeLoginResponse
		if err := resp.decode(&login); err != nil {
			return Token{}, retry.Permanent(err)
		}
		if login.Data.JWTToken == "" {
			return Token{}, retry.Permanent(fmt.Errorf("%s: login response without jwt_token", TVTimeService))
		}

		return Token{
			AccessToken:  login.Data.JWTToken,
			RefreshToken: login.Data.JWTRefreshToken,
			ExpiresAt:    jwtExpiry(login.Data.JWTToken),
		}, nil
	})(ctx)
}

// jwtExpiry reads the exp claim without verifying the signature; the token
// is only inspected to schedule a renewal. Zero means unknown.
func jwtExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// WatchEpisode implements Client. TV Time identifies episodes by TVDB id,
// but show title, season and episode are still required.
func (c *TVTimeClient) WatchEpisode(ctx context.Context, req EpisodeRequest) error {
	logger := logging.Ctx(ctx).With().Str("service", TVTimeService).Str("show", req.ShowTitle).Str("episode", req.label()).Logger()

	if req.ShowTitle == "" || req.Season == nil || req.Episode == nil {
		logger.Error().Msg("Missing required show information (title, season, episode)")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeShow), "skipped")
		return nil
	}

	tvdb := strings.TrimSpace(models.Deref(req.TVDBID))
	if tvdb == "" {
		logger.Warn().Msg("Skipping episode watch: no TVDB id")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeShow), "skipped")
		return nil
	}

	var result models.TVTimeEpisodeWatchResponse
	err := retry.Do(ctx, c.policy, "tvtime.episode", func(ctx context.Context) error {
		resp, cfg, err := c.req.doAuthorized(ctx, c.session, func(token Token) requestConfig {
			return requestConfig{
				method: http.MethodPost,
				url:    sidecarURL(c.cfg.AppURL, tvtimeEpisodeUpstream+url.PathEscape(tvdb), url.Values{"is_rewatch": {"0"}}),
				// The endpoint expects the refresh token as the JSON body.
				body:   token.RefreshToken,
				bearer: token.AccessToken,
			}
		})
		if err != nil {
			return classifySession(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classify(resp.statusError(TVTimeService, cfg))
		}
		return retry.Permanent(resp.decode(&result))
	})
	if err != nil {
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeShow), "error")
		return err
	}

	if result.Result != "OK" {
		logger.Error().Str("tvdb", tvdb).Str("result", result.Result).Msg("TV Time rejected episode watch")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeShow), "not_found")
		return nil
	}

	metrics.RecordWatch(TVTimeService, string(models.MediaTypeShow), "watched")
	logger.Info().
		Str("tvtime_show", result.Show.Name).
		Str("tvtime_episode", models.MediaDetails{Season: result.Season.Number, Episode: result.Number}.EpisodeLabel()).
		Msg("Successfully marked episode as watched")
	return nil
}

// WatchMovie implements Client. The movie is located by TVDB, TMDB and
// IMDB id in turn, then by title; the first hit is marked watched.
func (c *TVTimeClient) WatchMovie(ctx context.Context, req MovieRequest) error {
	logger := logging.Ctx(ctx).With().Str("service", TVTimeService).Str("movie", req.Title).Logger()

	if models.Deref(req.TMDBID) == "" && models.Deref(req.IMDBID) == "" {
		logger.Warn().Msg("Skipping movie, no valid ID")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "skipped")
		return nil
	}

	uuid, err := c.findMovie(ctx, req)
	if err != nil {
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "error")
		return err
	}
	if uuid == "" {
		logger.Warn().
			Str("tvdb", models.Deref(req.TVDBID)).
			Str("tmdb", models.Deref(req.TMDBID)).
			Str("imdb", models.Deref(req.IMDBID)).
			Msg("Movie not found in TV Time database")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "not_found")
		return nil
	}

	var status models.TVTimeStatusResponse
	err = retry.Do(ctx, c.policy, "tvtime.movie", func(ctx context.Context) error {
		resp, cfg, err := c.req.doAuthorized(ctx, c.session, func(token Token) requestConfig {
			return requestConfig{
				method: http.MethodPost,
				url:    sidecarURL(c.cfg.AppURL, tvtimeTrackingUpstream+url.PathEscape(uuid)+"/watch", nil),
				bearer: token.AccessToken,
			}
		})
		if err != nil {
			return classifySession(err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return classify(resp.statusError(TVTimeService, cfg))
		}
		return retry.Permanent(resp.decode(&status))
	})
	if err != nil {
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "error")
		return err
	}

	if status.Status != "success" {
		logger.Error().Str("uuid", uuid).Str("status", status.Status).Msg("TV Time rejected movie watch")
		metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "not_found")
		return nil
	}

	metrics.RecordWatch(TVTimeService, string(models.MediaTypeMovie), "watched")
	logger.Info().Str("uuid", uuid).Msg("Successfully marked movie as watched")
	return nil
}

// movieQuery is one way of looking a movie up.
type movieQuery struct {
	kind  string
	value string
	limit int
}

// findMovie returns the uuid of the first movie matched, or "" when no
// lookup matched. Failed lookups are logged and skipped; only
// cancellation and session failures abort the search.
func (c *TVTimeClient) findMovie(ctx context.Context, req MovieRequest) (string, error) {
	var queries []movieQuery
	for _, q := range []movieQuery{
		{kind: "tvdb", value: models.Deref(req.TVDBID), limit: 1},
		{kind: "tmdb", value: models.Deref(req.TMDBID), limit: 1},
		{kind: "imdb", value: models.Deref(req.IMDBID), limit: 1},
		{kind: "title", value: req.Title, limit: 5},
	} {
		if strings.TrimSpace(q.value) != "" {
			queries = append(queries, q)
		}
	}

	logger := logging.Ctx(ctx)
	for _, q := range queries {
		uuid, err := c.searchMovie(ctx, q)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrSessionFailed) || errors.Is(err, ErrAuthentication) {
				return "", err
			}
			logger.Debug().Err(err).Str("service", TVTimeService).Str("lookup", q.kind).Msg("Search method failed")
			continue
		}
		if uuid != "" {
			logger.Debug().Str("service", TVTimeService).Str("lookup", q.kind).Str("uuid", uuid).Msg("Movie found")
			return uuid, nil
		}
	}
	return "", nil
}

func (c *TVTimeClient) searchMovie(ctx context.Context, q movieQuery) (string, error) {
	params := url.Values{
		"q":      {q.value},
		"offset": {"0"},
		"limit":  {fmt.Sprintf("%d", q.limit)},
	}
	resp, cfg, err := c.req.doAuthorized(ctx, c.session, func(token Token) requestConfig {
		return requestConfig{
			method: http.MethodGet,
			url:    sidecarURL(c.cfg.AppURL, tvtimeSearchUpstream, params),
			bearer: token.AccessToken,
		}
	})
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", resp.statusError(TVTimeService, cfg)
	}

	var search models.TVTimeSearchResponse
	if err := resp.decode(&search); err != nil {
		return "", err
	}
	if search.Status != "success" {
		return "", nil
	}
	return search.FirstMovieUUID(), nil
}
