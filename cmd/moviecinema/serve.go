package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/moviecinema/moviecinema/internal/api"
	"github.com/moviecinema/moviecinema/internal/config"
	"github.com/moviecinema/moviecinema/internal/metadata/tmdb"
	"github.com/moviecinema/moviecinema/internal/scheduler"
	"github.com/moviecinema/moviecinema/internal/startup"
	"github.com/moviecinema/moviecinema/internal/websocket"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	log.Info().
		Str("version", config.Version).
		Str("logLevel", a.cfg.Logging.Level).
		Msg("starting MovieCinema")

	db, err := a.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	hub := websocket.NewHub(log.Logger)
	go hub.Run()

	sched, err := scheduler.New(log.Logger)
	if err != nil {
		return err
	}

	server, err := api.NewServer(ctx, api.Deps{
		DB:        db.Conn(),
		Hub:       hub,
		Scheduler: sched,
		Config:    a.cfg,
		Logger:    log.Logger,
		LogFile:   log.FilePath(),
	})
	if err != nil {
		return err
	}

	probeTMDB(ctx, server.TMDB(), a)

	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		addr := a.cfg.Server.Address()
		log.Info().Str("address", addr).Msg("HTTP server listening")
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		log.Warn().Err(err).Msg("scheduler shutdown error")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
	return nil
}

// probeTMDB waits for the network at startup. The server still starts when
// TMDB stays unreachable; the health task keeps checking.
func probeTMDB(ctx context.Context, client *tmdb.Client, a *app) {
	if !client.IsConfigured() {
		a.log.Warn().Msg("TMDB API key is not configured, set MOVIECINEMA_TMDB_API_KEY")
		return
	}
	err := startup.WithRetry(ctx, "TMDB connectivity", startup.DefaultRetryConfig(), func() error {
		return client.Test(ctx)
	}, &a.log.Logger)
	if err != nil {
		a.log.Warn().Err(err).Msg("TMDB unreachable, results will be empty until it recovers")
	}
}
