package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotbridge/internal/formatter"
	"github.com/desertthunder/spotbridge/internal/models"
)

// TokensList prints connected users. Refresh tokens are never printed.
func (r *Runner) TokensList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, repos, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	tokens, err := repos.Tokens.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if tokens == nil {
			tokens = []*models.UserToken{}
		}
		return r.writeJSON(tokens, cmd.Bool("pretty"))
	}

	format := cmd.String("format")
	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(format, tokens, path); err != nil {
			return err
		}
		r.logger.Info("exported connected users", "path", path, "count", len(tokens))
		return r.writePlain("✓ Exported %d user(s) to %s\n", len(tokens), path)
	}

	data, err := formatter.Render(format, tokens)
	if err != nil {
		return err
	}
	return r.writePlain("%s", data)
}

// StatesPurge deletes login states that have expired.
func (r *Runner) StatesPurge(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, repos, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := repos.States.Purge(ctx, time.Now())
	if err != nil {
		return err
	}

	r.logger.Info("purged expired states", "count", n)
	return r.writePlain("✓ Removed %d expired state(s)\n", n)
}
