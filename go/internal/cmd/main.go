package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	file, err := config.Load(config.GetEnv("CONFIG_PATH", config.DefaultPath))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	cfg := loadServerConfig(file)
	clock := clockwork.NewRealClock()

	stores, err := setupStores(ctx, cfg, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up stores")
	}
	defer stores.Close()

	services, err := setupServices(ctx, file, cfg, stores, clock)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up services")
	}

	server, err := setupServer(cfg.Port, services)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up server")
	}

	log.Info().
		Str("port", cfg.Port).
		Str("mode", file.DefaultCourtMode).
		Strs("courts", file.Courts).
		Msg("starting courtside server")

	errCh := make(chan error, 3)
	if stores.Listener != nil {
		go func() {
			if err := stores.Listener.Start(ctx); err != nil {
				errCh <- fmt.Errorf("tree listener: %w", err)
			}
		}()
	}
	go func() {
		if err := services.Gateway.Start(ctx); err != nil {
			errCh <- fmt.Errorf("gateway: %w", err)
		}
	}()
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
	services.Close(shutdownCtx)
	log.Info().Msg("courtside server stopped")
}
