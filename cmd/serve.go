package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotbridge/internal/repositories"
	"github.com/desertthunder/spotbridge/internal/server"
	"github.com/desertthunder/spotbridge/internal/services"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// Serve runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if host := cmd.String("host"); host != "" {
		config.Server.Host = host
	}
	if port := int(cmd.Int("port")); port > 0 {
		config.Server.Port = port
	}

	if err := config.Credentials.Spotify.RequireExchange(); err != nil {
		r.logger.Warn("spotify credentials incomplete; login and callback will fail", "error", err)
	}

	db, repos, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	handler, err := r.buildHandler(config, db, repos)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting spotbridge",
		"addr", config.Server.Addr(),
		"prefix", config.Server.Prefix(),
		"frontend", config.Server.FrontendBaseURL != "",
	)

	srv := server.NewServer(config.Server.Addr(), handler, r.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// buildHandler wires the Spotify client, stores, and router for config.
func (r *Runner) buildHandler(config *shared.Config, db server.Pinger, repos *repositories.Repositories) (http.Handler, error) {
	spotify := services.NewSpotifyService(config.Credentials.Spotify, r.httpClient)

	return server.New(server.Options{
		Config:  config,
		Service: spotify,
		Tokens:  repos.Tokens,
		States:  repos.States,
		DB:      db,
		Logger:  r.logger,
	})
}
