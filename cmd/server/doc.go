// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package main is the entry point for the Watchrelay server.

Watchrelay receives completed-playback webhooks from Plex and Jellyfin and
marks the same episode or movie as watched on Trakt and TV Time for the
user who watched it.

# Commands

	watchrelay serve          run the webhook server (default)
	watchrelay check-config   validate config and print the user/service matrix
	watchrelay auth-url       print the Trakt authorization page per user

Global flags:

	-c, --config     configuration file (default: CONFIG_PATH or config.yaml)
	    --env-file   dotenv file loaded before configuration (default: .env)

# Startup

serve builds every configured tracking client, starts the supervisor tree
and logs everyone in from the tracking layer. /health/ready reports 503
until those logins finished; webhooks are accepted from the start and log
in lazily.

	RootSupervisor ("watchrelay")
	├── TrackingSupervisor ("tracking-layer")
	│   └── tracking-login
	└── APISupervisor ("api-layer")
	    └── http-server

# Endpoints

	POST /webhook/{manager}   manager is "plex" or "jellyfin"
	GET  /health/live
	GET  /health/ready
	GET  /metrics

# Signal Handling

SIGINT and SIGTERM stop accepting connections and give in-flight webhooks
server.timeout to finish before exiting.
*/
package main
