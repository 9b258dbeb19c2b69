package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spotgram/spotgram/internal/auth"
	"github.com/spotgram/spotgram/internal/bot"
	"github.com/spotgram/spotgram/internal/models"
	"github.com/spotgram/spotgram/internal/repositories"
	"github.com/spotgram/spotgram/internal/server"
	"github.com/spotgram/spotgram/internal/services"
	"github.com/spotgram/spotgram/internal/shared"
	"github.com/urfave/cli/v3"
)

// Run wires the whole system and blocks until interrupted: token stores,
// Spotify service, auth manager, OAuth callback listener, and the bot
// dispatcher. The listener and the dispatcher run concurrently and share
// nothing but the token store.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	// Missing credentials are the only error allowed to end the process,
	// and only here, before anything is serving.
	if err := config.Validate(); err != nil {
		return err
	}

	tokens, stats, cleanup, err := r.buildStores(config)
	if err != nil {
		return err
	}
	defer cleanup()

	spotify, err := services.NewSpotifyService(config.Spotify.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	client := bot.NewClient(config.Telegram.Token, nil)

	notify := func(identity string, _ models.TokenRecord) error {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return client.SendMessage(notifyCtx, bot.Outgoing{
			ChatID: identity,
			Text:   "✅ Spotify connected. Come back to the bot.",
		})
	}

	manager := auth.NewManager(tokens, spotify, notify, shared.ComponentLogger(r.logger, "auth"))

	serverLogger := shared.ComponentLogger(r.logger, "oauth")
	router := server.NewBasicRouter()
	router.Use(server.Logging(serverLogger))
	router.Handler(server.NewCallbackHandler(manager, spotify, serverLogger))
	listener := server.NewListener(config.Server.Host, config.Server.Port, router, serverLogger)

	dispatcher := bot.NewDispatcher(client, manager, spotify, stats, shared.ComponentLogger(r.logger, "bot"))

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(runCtx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- listener.Start(runCtx) }()
	go func() { errCh <- dispatcher.Run(runCtx) }()

	var firstErr error
	for i := 0; i < 2; i++ {
		err := <-errCh
		cancel()
		if firstErr == nil && err != nil && !errors.Is(err, context.Canceled) {
			firstErr = err
		}
	}

	return firstErr
}

// buildStores selects the persistence backend: SQLite when a database path is
// configured, process memory otherwise.
func (r *Runner) buildStores(config *shared.Config) (models.TokenStore, models.StatsStore, func(), error) {
	if config.Database.Path == "" {
		r.logger.Info("using in-memory storage, tokens are lost on restart")
		return repositories.NewMemoryTokenStore(), repositories.NewMemoryStatsStore(), func() {}, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("using sqlite storage", "path", config.Database.Path)
	return repositories.NewTokenRepository(db), repositories.NewStatsRepository(db), func() { db.Close() }, nil
}
