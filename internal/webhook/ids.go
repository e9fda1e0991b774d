// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package webhook

import (
	"strings"

	"github.com/tomtom215/watchrelay/internal/models"
)

// External identifier schemes.
const (
	SchemeTVDB = "tvdb"
	SchemeTMDB = "tmdb"
	SchemeIMDB = "imdb"
)

// legacyAgents maps old Plex agent prefixes to schemes.
var legacyAgents = map[string]string{
	"com.plexapp.agents.thetvdb":    SchemeTVDB,
	"com.plexapp.agents.themoviedb": SchemeTMDB,
	"com.plexapp.agents.imdb":       SchemeIMDB,
}

// ParseExternalID splits "tvdb://123" into ("tvdb", "123"). Legacy agent
// GUIDs are accepted when they name a single item; compound ones such as
// "com.plexapp.agents.thetvdb://81189/1/3" point at the show and are
// rejected. ok is false for unknown schemes or empty values.
func ParseExternalID(guid string) (scheme, value string, ok bool) {
	prefix, rest, found := strings.Cut(strings.TrimSpace(guid), "://")
	if !found {
		return "", "", false
	}

	scheme = strings.ToLower(prefix)
	if mapped, legacy := legacyAgents[scheme]; legacy {
		scheme = mapped
		if i := strings.IndexByte(rest, '?'); i >= 0 {
			rest = rest[:i]
		}
		if strings.Contains(rest, "/") {
			return "", "", false
		}
	}

	switch scheme {
	case SchemeTVDB, SchemeTMDB, SchemeIMDB:
	default:
		return "", "", false
	}
	if rest == "" {
		return "", "", false
	}
	return scheme, rest, true
}

// resolveGUIDs fills the identifier fields of d from scheme-prefixed GUIDs.
// The first GUID of each scheme wins.
func resolveGUIDs(d *models.MediaDetails, guids models.PlexGUIDs) {
	for _, g := range guids {
		scheme, value, ok := ParseExternalID(g.ID)
		if !ok {
			continue
		}
		switch scheme {
		case SchemeTVDB:
			if d.TVDBID == nil {
				d.TVDBID = models.StringPtr(value)
			}
		case SchemeTMDB:
			if d.TMDBID == nil {
				d.TMDBID = models.StringPtr(value)
			}
		case SchemeIMDB:
			if d.IMDBID == nil {
				d.IMDBID = models.StringPtr(value)
			}
		}
	}
}
