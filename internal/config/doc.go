// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package config provides centralized configuration management for Watchrelay.

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, config.yaml, /etc/watchrelay/config.yaml)
 3. Environment variables (see envTransformFunc for the mapping table)

# Users

Tracking service credentials are keyed by the lowercased media server
username that appears in the webhook:

	users:
	  alice:
	    trakt:
	      client_id: "..."
	      client_secret: "..."
	      code: "..."
	      redirect_uri: "urn:ietf:wg:oauth:2.0:oob"
	    tvtime:
	      username: "alice@example.com"
	      password: "..."

The legacy "tracktv" key is accepted as an alias for "trakt".

Users are only configurable through the YAML file. Everything else can also
be set through environment variables:

  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - WEBHOOK_SECRET, WEBHOOK_RATE_LIMIT, WEBHOOK_RATE_WINDOW
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
  - RETRY_MAX_RETRIES, RETRY_INITIAL_DELAY, RETRY_MAX_DELAY
  - TRAKT_BASE_URL, TRAKT_RATE_LIMIT
  - TVTIME_APP_URL, TVTIME_TOKEN_COMMAND, TVTIME_JWT_TOKEN
  - CIRCUIT_BREAKER_ENABLED
*/
package config
