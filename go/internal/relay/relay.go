// Package relay copies court sessions from the match store onto the
// SCOREBOARD JetStream stream, one subject per court.
package relay

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
	"github.com/courtside/livescore/go/internal/viewer"
)

// Publisher delivers one scoreboard event.
type Publisher interface {
	Publish(ctx context.Context, ev *Event) error
}

type Config struct {
	// Paths are the session paths to relay, e.g. matches/court_a.
	Paths []string
	// RetryInterval is how long a failed publish waits before retrying
	// when no newer snapshot arrives first.
	RetryInterval time.Duration
}

type Relay struct {
	sub   *viewer.Subscriber
	pub   Publisher
	clock clockwork.Clock
	cfg   Config
}

func New(src tree.Reader, pub Publisher, clock clockwork.Clock, cfg Config) *Relay {
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	return &Relay{
		sub:   viewer.NewSubscriber(src, cfg.Paths),
		pub:   pub,
		clock: clock,
		cfg:   cfg,
	}
}

// Run relays every path until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Strs("paths", r.cfg.Paths).Msg("scoreboard relay started")

	var wg sync.WaitGroup
	for _, p := range r.sub.Paths() {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			r.watch(ctx, path)
		}(p)
	}
	wg.Wait()

	log.Info().Msg("scoreboard relay stopped")
	return nil
}

func (r *Relay) watch(ctx context.Context, path string) {
	key := CourtKeyForPath(path)
	snaps := r.sub.Watch(ctx, path)

	var (
		pending  *models.MatchSession
		sent     bool
		lastSent int64
		retry    clockwork.Timer
		retryC   <-chan time.Time
	)
	defer func() {
		if retry != nil {
			retry.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-snaps:
			if !ok {
				return
			}
			pending = s
		case <-retryC:
			retryC = nil
		}
		if pending == nil {
			continue
		}
		// resyncs redeliver unchanged snapshots
		if sent && pending.LastUpdated == lastSent {
			pending = nil
			continue
		}

		if err := r.publish(ctx, key, pending); err != nil {
			log.Error().Err(err).Str("court", key).Msg("failed to publish scoreboard snapshot")
			if retry != nil {
				retry.Stop()
			}
			retry = r.clock.NewTimer(r.cfg.RetryInterval)
			retryC = retry.Chan()
			continue
		}
		sent, lastSent, pending = true, pending.LastUpdated, nil
	}
}

func (r *Relay) publish(ctx context.Context, key string, s *models.MatchSession) error {
	ev, err := NewSessionEvent(key, s, r.clock.Now())
	if err != nil {
		return err
	}
	return r.pub.Publish(ctx, ev)
}
