package livesync

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ScorePair is the viewer-facing team score.
type ScorePair struct {
	A int `json:"scoreA"`
	B int `json:"scoreB"`
}

// DelayBuffer holds the latest score pair until delay elapses with no newer
// pair. Each Schedule restarts the countdown; Cancel discards the pair.
type DelayBuffer struct {
	clock   clockwork.Clock
	delay   time.Duration
	flush   func(ctx context.Context, p ScorePair) error
	onError func(error)

	mu      sync.Mutex
	pending *ScorePair
	timer   clockwork.Timer
	stop    chan struct{}
	gen     uint64

	// flushMu keeps delayed writes in schedule order.
	flushMu sync.Mutex
}

// NewDelayBuffer returns a buffer that calls flush once a pair has been
// quiet for delay. Failed flushes go to onError.
func NewDelayBuffer(clock clockwork.Clock, delay time.Duration, flush func(ctx context.Context, p ScorePair) error, onError func(error)) *DelayBuffer {
	if onError == nil {
		onError = func(error) {}
	}
	return &DelayBuffer{
		clock:   clock,
		delay:   delay,
		flush:   flush,
		onError: onError,
	}
}

// Schedule replaces any buffered pair with p and restarts the countdown.
func (b *DelayBuffer) Schedule(p ScorePair) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cancelLocked()
	b.gen++
	b.pending = &p
	b.timer = b.clock.NewTimer(b.delay)
	b.stop = make(chan struct{})

	go b.wait(b.gen, b.timer, b.stop)

	log.Debug().
		Int("score_a", p.A).
		Int("score_b", p.B).
		Dur("delay", b.delay).
		Msg("buffered score update")
}

// Cancel discards the buffered pair. It reports whether one was pending.
func (b *DelayBuffer) Cancel() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	had := b.pending != nil
	b.cancelLocked()
	b.gen++
	return had
}

// Stop discards the buffered pair like Cancel and then waits for a write
// that already left the buffer, so nothing lands after Stop returns.
func (b *DelayBuffer) Stop() bool {
	had := b.Cancel()
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return had
}

// Pending returns the buffered pair, if any.
func (b *DelayBuffer) Pending() (ScorePair, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return ScorePair{}, false
	}
	return *b.pending, true
}

// Flush writes the buffered pair now instead of waiting. It is a no-op when
// nothing is pending.
func (b *DelayBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	if b.pending == nil {
		b.mu.Unlock()
		return nil
	}
	p := *b.pending
	b.cancelLocked()
	b.gen++
	b.mu.Unlock()

	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	return b.flush(ctx, p)
}

func (b *DelayBuffer) wait(gen uint64, t clockwork.Timer, stop <-chan struct{}) {
	select {
	case <-stop:
		return
	case <-t.Chan():
	}

	b.mu.Lock()
	if gen != b.gen || b.pending == nil {
		b.mu.Unlock()
		return
	}
	p := *b.pending
	b.pending = nil
	b.timer = nil
	b.stop = nil
	b.mu.Unlock()

	if err := b.write(gen, p); err != nil {
		b.onError(err)
	}
}

// write flushes p unless the buffer was cancelled while waiting for an
// earlier write.
func (b *DelayBuffer) write(gen uint64, p ScorePair) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	stale := gen != b.gen
	b.mu.Unlock()
	if stale {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return b.flush(ctx, p)
}

func (b *DelayBuffer) cancelLocked() {
	if b.timer != nil {
		stopAndDrainTimer(b.timer)
		b.timer = nil
	}
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	b.pending = nil
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
