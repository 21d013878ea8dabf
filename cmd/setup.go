package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotbridge/internal/shared"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "driver", config.Database.Driver, "tokens_table", config.Database.TokensTable)

	db, _, err := r.openStore(config)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Info("setup complete")
	return r.writePlain("✓ Database ready (%s)\n", config.Database.Driver)
}

// SetupConfig writes the configuration template to --output.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		return fmt.Errorf("%w: --output", shared.ErrMissingArgument)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	if err := r.writePlain("✓ Configuration written to %s\n", path); err != nil {
		return err
	}
	return r.writePlain("Set credentials.spotify.client_id and client_secret, or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET in .env\n")
}
