package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/config"
	"github.com/courtside/livescore/go/internal/dbconfig"
	"github.com/courtside/livescore/go/internal/relay"
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

	dbCfg := dbconfig.NewConfigFromEnv()
	pool, err := dbCfg.Connect(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	store := tree.NewPostgres(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure tree schema")
	}

	lcfg := tree.DefaultListenerConfig()
	lcfg.DatabaseURL = dbCfg.DSN()
	listener, err := tree.NewListener(store, lcfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create tree listener")
	}

	jsCfg := relay.DefaultJetStreamConfig()
	jsCfg.URL = config.GetEnv("NATS_URL", jsCfg.URL)
	publisher, err := relay.NewJetStreamPublisher(jsCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer publisher.Close()

	paths := cfg.SessionPaths()
	log.Info().
		Str("database", dbCfg.Target()).
		Str("nats_url", jsCfg.URL).
		Strs("paths", paths).
		Msg("starting scoreboard relay")

	r := relay.New(store, publisher, clockwork.NewRealClock(), relay.Config{Paths: paths})

	errCh := make(chan error, 2)
	go func() {
		if err := listener.Start(ctx); err != nil {
			errCh <- err
		}
	}()
	go func() {
		if err := r.Run(ctx); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("received shutdown signal")
	case err := <-errCh:
		log.Error().Err(err).Msg("relay failed")
	}

	log.Info().Msg("scoreboard relay stopped")
}
