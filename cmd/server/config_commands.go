// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/tracking"
)

func newCheckConfigCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and list each user's tracking services",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			clients := tracking.DefaultFactory(cfg).Build(cmd.Context(), cfg)

			rows := serviceMatrix(cfg, clients)
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid, but no user has a tracking service configured.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"User", "Service", "Status"}, rows))
			return nil
		},
	}
}

// serviceMatrix lists every configured user service and whether a client
// could be built for it.
func serviceMatrix(cfg *config.Config, clients map[string][]tracking.Client) [][]string {
	var rows [][]string
	for _, user := range cfg.UserKeys() {
		built := make(map[string]tracking.Client)
		for _, c := range clients[user] {
			built[c.Name()] = c
		}
		for _, service := range cfg.Users[user].ServiceNames() {
			status := "skipped: invalid credentials"
			if c, ok := built[service]; ok {
				status = tracking.Describe(c)
			}
			rows = append(rows, []string{user, service, status})
		}
	}
	return rows
}

func newAuthURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Trakt authorization page for each user",
		Long: "Print the page where each user grants Watchrelay access to their Trakt account.\n" +
			"Paste the code it shows into users.<name>.trakt.code.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			var rows [][]string
			for _, user := range cfg.UserKeys() {
				if creds := cfg.Users[user].Trakt; creds != nil {
					rows = append(rows, []string{user, tracking.AuthorizeURL(cfg.Trakt, *creds)})
				}
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No user has Trakt configured.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"User", "Authorize URL"}, rows))
			return nil
		},
	}
}
