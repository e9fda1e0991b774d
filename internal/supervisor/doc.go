// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package supervisor runs Watchrelay's long-lived services under suture v4.

The tree has two layers so a crash in one does not restart the other:

	RootSupervisor ("watchrelay")
	├── TrackingSupervisor ("tracking-layer")
	│   └── LoginService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events (starts, failures, backoff) are logged through
sutureslog. Pass logging.NewSlogLogger so they land in the zerolog stream.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddTrackingService(services.NewLoginService(login, handler.SetReady))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	errCh := tree.ServeBackground(ctx)
*/
package supervisor
