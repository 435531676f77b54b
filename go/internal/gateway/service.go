// Package gateway pushes live scoreboards to viewers over websockets.
package gateway

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/tree"
	"github.com/courtside/livescore/go/internal/viewer"
)

type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	// UseJetStream reads events from NATS instead of watching the store.
	UseJetStream bool
	Paths        []string
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

type Service struct {
	connectionManager *ConnectionManager
	handler           *Handler
	source            EventSource
}

// NewService builds the gateway over store. Snapshot routes always read the
// store; live pushes come from JetStream or from the store itself.
func NewService(config Config, store tree.Reader, clock clockwork.Clock) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig)
	sub := viewer.NewSubscriber(store, config.Paths)

	var source EventSource
	if config.UseJetStream {
		ec, err := NewEventConsumer(cm, config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		source = ec
	} else {
		source = NewStoreWatcher(cm, sub, clock)
	}

	return &Service{
		connectionManager: cm,
		handler:           NewHandler(cm, sub),
		source:            source,
	}, nil
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting scoreboard gateway")

	go s.connectionManager.Start(ctx)

	err := s.source.Start(ctx)
	if stopErr := s.source.Stop(); stopErr != nil {
		log.Error().Err(stopErr).Msg("failed to stop event source")
	}
	log.Info().Msg("scoreboard gateway stopped")
	return err
}

func (s *Service) RegisterRoutes(r chi.Router) {
	s.handler.RegisterRoutes(r)
}

func (s *Service) Stats() Stats {
	return s.connectionManager.Stats()
}
