// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

/*
Package services provides suture.Service wrappers for Watchrelay components.

Each wrapper translates a component's lifecycle into suture's context-aware
Serve pattern and implements fmt.Stringer so supervisor events name it.

HTTPServerService wraps *http.Server. ListenAndServe runs in a goroutine;
context cancellation triggers Shutdown with a bounded timeout.

LoginService authenticates every tracking client once at startup, flips
readiness, and then idles until shutdown. Returning early would make suture
restart it, which would log everyone in again.
*/
package services
