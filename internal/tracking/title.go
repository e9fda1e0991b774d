// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package tracking

import (
	"regexp"
	"strconv"
)

// titleYearPattern matches a trailing parenthesized year: "S.W.A.T. (2017)".
var titleYearPattern = regexp.MustCompile(`^(.*\S)\s*\((\d{4})\)\s*$`)

// ParseTitleYear splits a trailing "(YYYY)" off a title. Titles without
// the suffix are returned unchanged with a nil year.
func ParseTitleYear(title string) (string, *int) {
	m := titleYearPattern.FindStringSubmatch(title)
	if m == nil {
		return title, nil
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return title, nil
	}
	return m[1], &year
}

// ResolveShowYear strips a year suffix from title. An explicit year wins
// over the one derived from the title.
func ResolveShowYear(title string, explicit *int) (string, *int) {
	stripped, derived := ParseTitleYear(title)
	if explicit != nil {
		return stripped, explicit
	}
	return stripped, derived
}
