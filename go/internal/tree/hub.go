package tree

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// hub fans change notifications out to path subscribers. Each subscriber has
// a one-slot wake channel, so bursts of changes collapse into a single read
// of the latest value.
type hub struct {
	mu   sync.Mutex
	subs map[*subscription]struct{}
	get  func(ctx context.Context, path string) (any, error)
}

type subscription struct {
	path string
	fn   func(any)
	wake chan struct{}
	stop chan struct{}
}

func newHub(get func(ctx context.Context, path string) (any, error)) *hub {
	return &hub{
		subs: make(map[*subscription]struct{}),
		get:  get,
	}
}

func (h *hub) subscribe(path string, fn func(any)) func() {
	sub := &subscription{
		path: Clean(path),
		fn:   fn,
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	sub.wake <- struct{}{}
	go h.run(sub)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, sub)
			h.mu.Unlock()
			close(sub.stop)
		})
	}
}

func (h *hub) run(sub *subscription) {
	for {
		select {
		case <-sub.stop:
			return
		case <-sub.wake:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		value, err := h.get(ctx, sub.path)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("path", sub.path).Msg("failed to read subscribed path")
			continue
		}

		select {
		case <-sub.stop:
			return
		default:
			sub.fn(value)
		}
	}
}

// notify wakes every subscriber whose path overlaps one of the changed paths.
func (h *hub) notify(paths ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs {
		for _, p := range paths {
			if Overlaps(sub.path, p) {
				select {
				case sub.wake <- struct{}{}:
				default:
				}
				break
			}
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
