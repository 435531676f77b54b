package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/admin"
	"github.com/courtside/livescore/go/internal/api"
	"github.com/courtside/livescore/go/internal/auth"
	"github.com/courtside/livescore/go/internal/config"
	"github.com/courtside/livescore/go/internal/gateway"
	"github.com/courtside/livescore/go/internal/scoring"
)

type Services struct {
	Registry *scoring.Registry
	API      *api.Server
	Gateway  *gateway.Service

	redis *redis.Client
}

func setupServices(ctx context.Context, file *config.File, cfg ServerConfig, stores *Stores, clock clockwork.Clock) (*Services, error) {
	// Wire up dependency injection chain
	// Stores → Registry → Admin → API

	deps := scoring.Deps{Tree: stores.Tree, Docs: stores.Docs, Clock: clock}
	var archive admin.Archive
	if stores.Mirror != nil {
		deps.Mirror = stores.Mirror
		archive = stores.Mirror
	}
	registry := scoring.NewRegistry(deps, file.Registry())
	adminSvc := admin.New(stores.Docs, stores.Tree, registry, archive, clock)

	svc := &Services{Registry: registry}
	limiter, err := svc.setupLimiter(ctx, file, cfg, clock)
	if err != nil {
		return nil, err
	}
	authenticator := auth.NewAuthenticator(cfg.Auth, limiter, auth.NewSessions(clock, auth.SessionDuration))
	svc.API = api.NewServer(authenticator, registry, adminSvc)

	gwCfg := gateway.DefaultConfig()
	gwCfg.Paths = file.SessionPaths()
	svc.Gateway, err = gateway.NewService(gwCfg, stores.Tree, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoreboard gateway: %w", err)
	}

	// warm the courts so a restart resumes in-progress sessions right away
	if _, err := registry.Controllers(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to resume court sessions")
	}
	return svc, nil
}

func (s *Services) setupLimiter(ctx context.Context, file *config.File, cfg ServerConfig, clock clockwork.Clock) (auth.Limiter, error) {
	if cfg.RedisAddr == "" {
		return auth.NewMemoryLimiter(clock, file.Auth.MaxAttempts, file.Lockout()), nil
	}
	s.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.redis.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("login lockouts shared through redis")
	return auth.NewRedisLimiter(s.redis, file.Auth.MaxAttempts, file.Lockout()), nil
}

// Close flushes every court session and drops the redis connection.
func (s *Services) Close(ctx context.Context) {
	if err := s.Registry.Close(ctx); err != nil {
		log.Error().Err(err).Msg("failed to close court sessions")
	}
	if s.redis != nil {
		s.redis.Close()
	}
}
