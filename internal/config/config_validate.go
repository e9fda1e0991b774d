// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package config

import (
	"fmt"

	"github.com/tomtom215/watchrelay/internal/validation"
)

// Validate checks that required configuration is present and valid.
//
// Users are not validated here: keys are opaque lowercased media server
// usernames, and a user service with missing fields is skipped at startup
// (see ValidateCredentials).
func (c *Config) Validate() error {
	sections := []struct {
		name string
		v    interface{}
	}{
		{"server", &c.Server},
		{"logging", &c.Logging},
		{"retry", &c.Retry},
		{"trakt", &c.Trakt},
		{"tvtime", &c.TVTime},
	}
	for _, s := range sections {
		if err := validation.ValidateStruct(s.v); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	if c.CircuitBreaker.Enabled {
		if err := validation.ValidateStruct(&c.CircuitBreaker); err != nil {
			return fmt.Errorf("circuit_breaker: %w", err)
		}
	}

	return nil
}

// ValidateCredentials checks a TraktCredentials or TVTimeCredentials value.
func ValidateCredentials(creds interface{}) error {
	if err := validation.ValidateStruct(creds); err != nil {
		return err
	}
	return nil
}

// HasUsers reports whether at least one user has at least one service.
func (c *Config) HasUsers() bool {
	for _, u := range c.Users {
		if len(u.ServiceNames()) > 0 {
			return true
		}
	}
	return false
}
