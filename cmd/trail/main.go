package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/trail/internal/app"
	"github.com/gosuda/trail/internal/config"
	"github.com/gosuda/trail/internal/server"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	app.SetupLogging(cfg.Log, os.Stdout)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := app.Open(ctx, cfg, app.Options{Migrate: true, Feed: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	deps := server.Deps{
		Audit:    rt.Audit,
		Versions: rt.Versions,
		Health:   rt.Store,
	}
	if rt.PubSub != nil {
		deps.Feed = rt.PubSub
	}

	// Create HTTP server with all routes wired.
	srv := server.New(ctx, cfg, deps)

	// Start server in background goroutine.
	go func() {
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
			cancel()
		}
	}()

	// Block until shutdown signal.
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}
