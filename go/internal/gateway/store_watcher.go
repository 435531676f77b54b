package gateway

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/relay"
	"github.com/courtside/livescore/go/internal/viewer"
)

// StoreWatcher broadcasts straight from the match store. It stands in for
// the JetStream consumer when no NATS server is configured.
type StoreWatcher struct {
	cm    *ConnectionManager
	sub   *viewer.Subscriber
	clock clockwork.Clock
}

var _ EventSource = (*StoreWatcher)(nil)

func NewStoreWatcher(cm *ConnectionManager, sub *viewer.Subscriber, clock clockwork.Clock) *StoreWatcher {
	return &StoreWatcher{cm: cm, sub: sub, clock: clock}
}

func (w *StoreWatcher) Start(ctx context.Context) error {
	log.Info().Strs("paths", w.sub.Paths()).Msg("watching match store for scoreboard updates")

	var wg sync.WaitGroup
	for _, p := range w.sub.Paths() {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			key := relay.CourtKeyForPath(path)
			var last int64 = -1
			for snap := range w.sub.Watch(ctx, path) {
				if snap.LastUpdated == last {
					continue
				}
				ev, err := relay.NewSessionEvent(key, snap, w.clock.Now())
				if err != nil {
					log.Error().Err(err).Str("court", key).Msg("failed to build scoreboard event")
					continue
				}
				last = snap.LastUpdated
				w.cm.Broadcast(ev)
			}
		}(p)
	}
	wg.Wait()
	return nil
}

func (w *StoreWatcher) Stop() error { return nil }
