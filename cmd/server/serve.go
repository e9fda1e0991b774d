// Watchrelay - Media Server Watch History Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/watchrelay

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/watchrelay/internal/api"
	"github.com/tomtom215/watchrelay/internal/config"
	"github.com/tomtom215/watchrelay/internal/dispatch"
	"github.com/tomtom215/watchrelay/internal/logging"
	"github.com/tomtom215/watchrelay/internal/supervisor"
	"github.com/tomtom215/watchrelay/internal/supervisor/services"
	"github.com/tomtom215/watchrelay/internal/tracking"
	"github.com/tomtom215/watchrelay/internal/webhook"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx.cfg)
		},
	}
}

// runServe runs the supervisor tree until SIGINT or SIGTERM.
func runServe(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Int("users", len(cfg.Users)).
		Bool("signature_required", cfg.Server.WebhookSecret != "").
		Msg("Starting Watchrelay")

	clients := tracking.DefaultFactory(cfg).Build(ctx, cfg)
	if len(clients) == 0 {
		logging.Warn().Msg("No user has a usable tracking service; every webhook will be ignored")
	}

	handler := api.NewHandler(dispatch.New(webhook.DefaultRegistry(), clients), cfg.Server)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server).SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddTrackingService(services.NewLoginService(func(ctx context.Context) {
		tracking.LoginAll(ctx, clients)
	}, handler.SetReady))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))

	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Watchrelay stopped")
	return nil
}
