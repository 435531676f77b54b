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

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/config"
	"github.com/courtside/livescore/go/internal/dbconfig"
	"github.com/courtside/livescore/go/internal/gateway"
	"github.com/courtside/livescore/go/internal/tree"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}
	config.SetupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", config.DefaultPath))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	port := config.GetEnv("GATEWAY_PORT", "8081")
	natsURL := config.GetEnv("NATS_URL", "")

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := dbCfg.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	store := tree.NewPostgres(pool)

	lcfg := tree.DefaultListenerConfig()
	lcfg.DatabaseURL = dbCfg.DSN()
	listener, err := tree.NewListener(store, lcfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create tree listener")
	}

	gwCfg := gateway.DefaultConfig()
	gwCfg.Paths = cfg.SessionPaths()
	if natsURL != "" {
		gwCfg.UseJetStream = true
		gwCfg.JetStreamConfig.URL = natsURL
		gwCfg.JetStreamConfig.ConsumerName = config.GetEnv("GATEWAY_CONSUMER", gwCfg.JetStreamConfig.ConsumerName)
	}
	svc, err := gateway.NewService(gwCfg, store, clockwork.NewRealClock())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create scoreboard gateway")
	}

	r := chi.NewRouter()
	svc.RegisterRoutes(r)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: cors.AllowAll().Handler(r),
	}

	log.Info().
		Str("database", dbCfg.Target()).
		Str("nats_url", natsURL).
		Str("port", port).
		Strs("paths", gwCfg.Paths).
		Msg("starting scoreboard gateway")

	errCh := make(chan error, 3)
	go func() {
		if err := listener.Start(ctx); err != nil {
			errCh <- fmt.Errorf("tree listener: %w", err)
		}
	}()
	go func() {
		if err := svc.Start(ctx); err != nil {
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
		log.Error().Err(err).Msg("gateway failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to shut down HTTP server")
	}
	log.Info().Msg("scoreboard gateway stopped")
}
