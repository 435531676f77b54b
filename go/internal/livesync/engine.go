// Package livesync mirrors a scorer's local session into the remote match
// store. Non-score fields are written as soon as they change; team scores
// go through a DelayBuffer so viewers trail the scorer by a fixed delay.
package livesync

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

// DefaultScoreDelay is the on-air delay for team scores.
const DefaultScoreDelay = 3000 * time.Millisecond

type Config struct {
	// Base is the session path, e.g. matches/court_a.
	Base string
	// ScoreDelay of 0 writes scores together with every other field.
	ScoreDelay time.Duration
	// OnError receives failures of delayed score writes.
	OnError func(error)
}

// Engine pushes one session to one tree path. It is safe for concurrent use
// but expects a single writer per path.
type Engine struct {
	store tree.Tree
	clock clockwork.Clock
	cfg   Config

	mu        sync.Mutex
	last      map[string]any
	stamp     int64
	local     ScorePair
	committed ScorePair
	buffer    *DelayBuffer
}

func NewEngine(store tree.Tree, clock clockwork.Clock, cfg Config) *Engine {
	e := &Engine{store: store, clock: clock, cfg: cfg}
	onError := func(err error) {
		log.Error().Err(err).Str("path", cfg.Base).Msg("failed to write delayed score")
		if cfg.OnError != nil {
			cfg.OnError(err)
		}
	}
	e.buffer = NewDelayBuffer(clock, cfg.ScoreDelay, e.writeScore, onError)
	return e
}

// Base returns the session path this engine writes to.
func (e *Engine) Base() string { return e.cfg.Base }

// Push writes every non-score field that differs from the last successful
// push in one atomic update, then buffers the score pair if it changed. On
// error nothing is buffered and the next Push retries the same fields.
func (e *Engine) Push(ctx context.Context, s *models.MatchSession) error {
	encoded, err := s.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	delete(encoded, "scoreA")
	delete(encoded, "scoreB")
	normalized, err := tree.Normalize(encoded)
	if err != nil {
		return err
	}
	fields, _ := normalized.(map[string]any)
	score := ScorePair{A: s.ScoreA, B: s.ScoreB}

	e.mu.Lock()
	defer e.mu.Unlock()

	updates := make(map[string]any)
	for k, v := range fields {
		if prev, ok := e.last[k]; !ok || !reflect.DeepEqual(prev, v) {
			updates[tree.Join(e.cfg.Base, k)] = v
		}
	}
	for k := range e.last {
		if _, ok := fields[k]; !ok {
			updates[tree.Join(e.cfg.Base, k)] = nil
		}
	}

	inline := e.last == nil || e.cfg.ScoreDelay <= 0
	if inline {
		updates[tree.Join(e.cfg.Base, "scoreA")] = score.A
		updates[tree.Join(e.cfg.Base, "scoreB")] = score.B
	}

	stamp := e.stamp
	if len(updates) > 0 {
		// every write carries a lastUpdated newer than any delayed score
		stamp = max(s.LastUpdated, e.stamp+1)
		updates[tree.Join(e.cfg.Base, "lastUpdated")] = stamp
		if err := e.store.Update(ctx, updates); err != nil {
			return fmt.Errorf("failed to push session to %s: %w", e.cfg.Base, err)
		}
	}
	e.last = fields
	e.stamp = stamp

	switch {
	case inline:
		e.buffer.Cancel()
		e.local = score
		e.committed = score
	case score != e.local:
		e.local = score
		e.buffer.Schedule(score)
	}
	return nil
}

// Replace overwrites the whole session node, scores included. A buffered
// score is dropped and one already being written finishes first.
func (e *Engine) Replace(ctx context.Context, s *models.MatchSession) error {
	encoded, err := s.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	normalized, err := tree.Normalize(encoded)
	if err != nil {
		return err
	}
	fields, _ := normalized.(map[string]any)

	e.buffer.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()

	stamp := max(s.LastUpdated, e.stamp+1)
	fields["lastUpdated"] = float64(stamp)
	if err := e.store.Set(ctx, e.cfg.Base, fields); err != nil {
		return fmt.Errorf("failed to replace session at %s: %w", e.cfg.Base, err)
	}
	delete(fields, "scoreA")
	delete(fields, "scoreB")
	score := ScorePair{A: s.ScoreA, B: s.ScoreB}
	e.last = fields
	e.stamp = stamp
	e.local = score
	e.committed = score
	return nil
}

// CancelPendingScore drops a buffered score write. The remote score keeps
// its last committed value until the next score change.
func (e *Engine) CancelPendingScore() bool {
	cancelled := e.buffer.Cancel()
	if cancelled {
		log.Info().Str("path", e.cfg.Base).Msg("cancelled pending score update")
	}
	return cancelled
}

// PendingScore returns the buffered score pair, if any.
func (e *Engine) PendingScore() (ScorePair, bool) {
	return e.buffer.Pending()
}

// Committed returns the last score pair known to be in the store.
func (e *Engine) Committed() ScorePair {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// Flush writes any buffered score immediately.
func (e *Engine) Flush(ctx context.Context) error {
	return e.buffer.Flush(ctx)
}

// Reset forgets what has been pushed so the next Push writes every field.
func (e *Engine) Reset() {
	e.buffer.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = nil
	e.local = ScorePair{}
	e.committed = ScorePair{}
}

// writeScore commits a delayed pair with a fresh lastUpdated so readers
// that skip already-seen snapshots still pick the new score up.
func (e *Engine) writeScore(ctx context.Context, p ScorePair) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	stamp := max(e.clock.Now().UnixMilli(), e.stamp+1)
	err := e.store.Update(ctx, map[string]any{
		tree.Join(e.cfg.Base, "scoreA"):      p.A,
		tree.Join(e.cfg.Base, "scoreB"):      p.B,
		tree.Join(e.cfg.Base, "lastUpdated"): stamp,
	})
	if err != nil {
		return fmt.Errorf("failed to write score to %s: %w", e.cfg.Base, err)
	}
	e.committed = p
	e.stamp = stamp

	log.Debug().
		Str("path", e.cfg.Base).
		Int("score_a", p.A).
		Int("score_b", p.B).
		Int64("last_updated", stamp).
		Msg("committed delayed score")
	return nil
}
