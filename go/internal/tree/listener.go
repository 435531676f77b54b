package tree

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // Channel name to LISTEN on
	PingInterval  time.Duration // Keepalive for the notify connection
	// ResyncInterval wakes every subscriber so a missed notification is
	// never stale for long.
	ResyncInterval time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:  NotifyChannel,
		PingInterval:   90 * time.Second,
		ResyncInterval: 30 * time.Second,
	}
}

// Listener relays pg_notify payloads into a Postgres tree's subscribers.
type Listener struct {
	tree     *Postgres
	listener *pq.Listener
	cfg      ListenerConfig
}

func NewListener(t *Postgres, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("tree listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for tree changes")

	return &Listener{tree: t, listener: l, cfg: cfg}, nil
}

// Start blocks until ctx is cancelled.
func (l *Listener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	resyncTicker := time.NewTicker(l.cfg.ResyncInterval)
	defer pingTicker.Stop()
	defer resyncTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("tree listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established; anything may have changed
				l.tree.Changed("")
				continue
			}
			l.tree.Changed(note.Extra)
		case <-resyncTicker.C:
			l.tree.Changed("")
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping tree listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	return l.listener.Close()
}
