package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spotgram/spotgram/internal/services"
	"github.com/spotgram/spotgram/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if absent and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Config created at %s — fill in your credentials\n", configPath)
	}

	config := r.loadConfig(configPath)

	if config.Database.Path == "" {
		r.writePlain("✓ No database path configured, storage stays in memory\n")
		return nil
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	return nil
}

// AuthURL prints the authorization URL for a chat-user identity, useful for
// testing the OAuth flow without going through the bot.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	identity := cmd.StringArg("identity")
	if identity == "" {
		return fmt.Errorf("%w: identity", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd.String("config"))

	spotify, err := services.NewSpotifyService(config.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	return r.writePlain("%s\n", spotify.AuthURL(identity))
}

// ShowConfig prints the effective configuration with secrets redacted.
func (r *Runner) ShowConfig(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	redacted := *config
	if redacted.Telegram.Token != "" {
		redacted.Telegram.Token = "<set>"
	}
	if redacted.Spotify.ClientSecret != "" {
		redacted.Spotify.ClientSecret = "<set>"
	}

	if cmd.Bool("json") {
		return r.writeJSON(redacted, true)
	}

	r.writePlain("telegram.token: %s\n", valueOrUnset(redacted.Telegram.Token))
	r.writePlain("spotify.client_id: %s\n", valueOrUnset(redacted.Spotify.ClientID))
	r.writePlain("spotify.client_secret: %s\n", valueOrUnset(redacted.Spotify.ClientSecret))
	r.writePlain("spotify.redirect_uri: %s\n", valueOrUnset(redacted.Spotify.RedirectURI))
	r.writePlain("spotify.scopes: %s\n", valueOrUnset(redacted.Spotify.Scopes))
	r.writePlain("server: %s:%d\n", redacted.Server.Host, redacted.Server.Port)
	r.writePlain("database.path: %s\n", valueOrUnset(redacted.Database.Path))
	return nil
}

func valueOrUnset(v string) string {
	if v == "" {
		return "<unset>"
	}
	return v
}
