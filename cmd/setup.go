package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/musicman/internal/formatter"
	"github.com/desertthunder/musicman/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the embedded example configuration to --config.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("%s\n", formatter.Success("✓ Configuration written to "+configPath))
	r.writePlain("%s\n", formatter.Hint("Set credentials.spotify.client_id and client_secret, or export SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET."))
	return nil
}

// ConfigValidate loads --config with environment overrides and reports the first problem.
func (r *Runner) ConfigValidate(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if err := config.Validate(); err != nil {
		r.writePlain("%s\n", formatter.Failure("✗ "+err.Error()))
		return err
	}

	r.writePlain("%s\n", formatter.Success("✓ Configuration is valid"))
	r.writePlain("listen: %s\nredirect: %s\nfrontend: %s\n",
		config.Server.Addr(), config.Credentials.Spotify.RedirectURI, config.Server.FrontendURL)
	return nil
}

// SetupDatabase initializes the audit database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	return nil
}
