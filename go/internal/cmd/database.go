package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/dbconfig"
	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/mirror"
	"github.com/courtside/livescore/go/internal/tree"
)

// Stores are the backends the API server writes to. Listener is nil when
// the server runs on in-memory stores.
type Stores struct {
	Tree     tree.Tree
	Docs     docstore.Store
	Mirror   *mirror.SQLite
	Listener *tree.Listener

	closers []func()
}

// setupStores connects to Postgres when one is configured and otherwise keeps
// everything in memory, which suits a single scorer laptop.
func setupStores(ctx context.Context, cfg ServerConfig, clock clockwork.Clock) (*Stores, error) {
	s := &Stores{}
	if dbconfig.Enabled() {
		if err := s.connectPostgres(ctx, clock); err != nil {
			s.Close()
			return nil, err
		}
	} else {
		log.Warn().Msg("DB_HOST not set, using in-memory stores")
		s.Tree = tree.NewMemory()
		s.Docs = docstore.NewMemory(clock)
	}

	if cfg.MirrorPath != "" {
		m, err := mirror.Open(cfg.MirrorPath)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Mirror = m
		s.closers = append(s.closers, func() { m.Close() })
		log.Info().Str("path", cfg.MirrorPath).Msg("local mirror opened")
	}
	return s, nil
}

func (s *Stores) connectPostgres(ctx context.Context, clock clockwork.Clock) error {
	dbCfg := dbconfig.NewConfigFromEnv()

	pool, err := dbCfg.Connect(ctx)
	if err != nil {
		return err
	}
	s.closers = append(s.closers, pool.Close)
	pg := tree.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		return err
	}

	lcfg := tree.DefaultListenerConfig()
	lcfg.DatabaseURL = dbCfg.DSN()
	listener, err := tree.NewListener(pg, lcfg)
	if err != nil {
		return fmt.Errorf("failed to create tree listener: %w", err)
	}
	s.closers = append(s.closers, func() { listener.Stop() })

	database, err := sql.Open("postgres", dbCfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	s.closers = append(s.closers, func() { database.Close() })
	docs := docstore.NewPostgres(database, clock)
	if err := docs.EnsureSchema(ctx); err != nil {
		return err
	}

	s.Tree = pg
	s.Listener = listener
	s.Docs = docs
	log.Info().Str("database", dbCfg.Target()).Msg("connected to database")
	return nil
}

// Close releases every backend in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
