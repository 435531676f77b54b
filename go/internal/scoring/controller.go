// Package scoring runs live match sessions for scorers. A Controller owns
// one session path, applies scorer operations to it, and keeps the remote
// match store, the local mirror and the running clocks in step.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/livesync"
	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

// ErrSyncFailed marks operations undone because the match store rejected
// the write.
var ErrSyncFailed = errors.New("failed to sync with match store")

const writeTimeout = 10 * time.Second

// Mirror is the local durable copy of sessions and saved matches.
type Mirror interface {
	SaveSession(ctx context.Context, key string, s *models.MatchSession) error
	LoadSession(ctx context.Context, key string) (*models.MatchSession, error)
	DeleteSession(ctx context.Context, key string) error
	SavePastMatch(ctx context.Context, pm models.PastMatch) error
}

// Deps are the shared stores every controller writes to. Mirror may be nil.
type Deps struct {
	Tree   tree.Tree
	Docs   docstore.Store
	Mirror Mirror
	Clock  clockwork.Clock
}

// Config describes one controller.
type Config struct {
	// Court is the display name written into new sessions.
	Court string
	// Base is the session path, matches/current or matches/<court-key>.
	Base       string
	Settings   match.Settings
	ScoreDelay time.Duration
}

// View is what a scorer's screen renders.
type View struct {
	Session       *models.MatchSession `json:"session"`
	Selected      string               `json:"selected,omitempty"`
	PendingScore  *livesync.ScorePair  `json:"pendingScore,omitempty"`
	Committed     livesync.ScorePair   `json:"committedScore"`
	EligibleBench []string             `json:"eligibleBench,omitempty"`
}

type Controller struct {
	deps   Deps
	cfg    Config
	engine *livesync.Engine
	notes  notifier

	mu      sync.Mutex
	session *match.Session
	// failing suppresses repeated sync notifications while the store is down.
	failing bool

	ticker   clockwork.Ticker
	tickStop chan struct{}
	tickGen  uint64
}

func NewController(deps Deps, cfg Config) *Controller {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	c := &Controller{deps: deps, cfg: cfg}
	c.engine = livesync.NewEngine(deps.Tree, deps.Clock, livesync.Config{
		Base:       cfg.Base,
		ScoreDelay: cfg.ScoreDelay,
		OnError: func(err error) {
			c.notify(LevelError, "Failed to update score: %v", err)
		},
	})
	c.session = c.blankSession()
	return c
}

func (c *Controller) blankSession() *match.Session {
	st := match.NewSession(c.cfg.Settings, c.deps.Clock).State()
	st.Court = c.cfg.Court
	return match.Restore(c.cfg.Settings, c.deps.Clock, st)
}

// Base returns the session path.
func (c *Controller) Base() string { return c.cfg.Base }

// Court returns the court display name.
func (c *Controller) Court() string { return c.cfg.Court }

// Notifications subscribes to scorer notifications. Call the returned func
// to unsubscribe.
func (c *Controller) Notifications() (<-chan Notification, func()) {
	return c.notes.subscribe()
}

// View returns the current session and scorer-only state.
func (c *Controller) View() *View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() *View {
	v := &View{
		Session:   c.session.State(),
		Selected:  c.session.Selected(),
		Committed: c.engine.Committed(),
	}
	if p, ok := c.engine.PendingScore(); ok {
		v.PendingScore = &p
	}
	if sub := v.Session.PendingSubstitution; sub != nil {
		v.EligibleBench = c.session.EligibleBench(sub.Team)
	}
	return v
}

// Close stops the clocks and releases subscribers. Buffered scores are
// flushed.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	c.stopTickerLocked()
	c.mu.Unlock()
	err := c.engine.Flush(ctx)
	c.notes.closeAll()
	return err
}

// apply runs op against the session under the controller lock.
func (c *Controller) apply(ctx context.Context, op string, fn func(s *match.Session) error) (*View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.applyLocked(ctx, op, fn); err != nil {
		return nil, err
	}
	return c.viewLocked(), nil
}

// applyLocked is the single mutation path: snapshot, apply, push, and on a
// failed push restore the snapshot. Rejections never reach the store.
func (c *Controller) applyLocked(ctx context.Context, op string, fn func(s *match.Session) error) error {
	snap := c.session.Snapshot()
	before := c.session.State()

	if err := fn(c.session); err != nil {
		c.session.Rollback(snap)
		if match.IsRejection(err) {
			c.notify(LevelWarn, "%s", err.Error())
		}
		return err
	}

	after := c.session.State()
	if reflect.DeepEqual(before, after) {
		c.publishNotices()
		return nil
	}
	after.LastUpdated = c.deps.Clock.Now().UnixMilli()

	if err := c.engine.Push(ctx, after); err != nil {
		c.session.Rollback(snap)
		c.reconcileTickerLocked()
		log.Error().Err(err).
			Str("court", c.cfg.Court).
			Str("op", op).
			Msg("failed to sync session, rolled back")
		if !c.failing {
			c.notify(LevelError, "Failed to sync match. Changes were undone.")
		}
		c.failing = true
		return fmt.Errorf("%w: %w", ErrSyncFailed, err)
	}
	if c.failing {
		c.failing = false
		c.notify(LevelInfo, "Connection restored")
	}

	c.saveMirror(ctx, after)
	c.reconcileTickerLocked()
	c.publishNotices()
	return nil
}

func (c *Controller) saveMirror(ctx context.Context, s *models.MatchSession) {
	if c.deps.Mirror == nil {
		return
	}
	if err := c.deps.Mirror.SaveSession(ctx, c.cfg.Base, s); err != nil {
		log.Warn().Err(err).Str("court", c.cfg.Court).Msg("failed to mirror session")
	}
}

func (c *Controller) publishNotices() {
	for _, msg := range c.session.Notices() {
		c.notify(LevelInfo, "%s", msg)
	}
}

func (c *Controller) notify(level Level, format string, args ...any) {
	c.notes.publish(Notification{
		Level:   level,
		Message: fmt.Sprintf(format, args...),
		At:      c.deps.Clock.Now(),
	})
}

// reconcileTickerLocked keeps exactly one one-second ticker alive while a
// clock needs it. The same ticker drives the match clock and the timeout
// countdown; Session.Tick picks whichever is active.
func (c *Controller) reconcileTickerLocked() {
	want := c.session.Ticking()
	if want == (c.ticker != nil) {
		return
	}
	if !want {
		c.stopTickerLocked()
		return
	}
	c.tickGen++
	t := c.deps.Clock.NewTicker(time.Second)
	stop := make(chan struct{})
	c.ticker, c.tickStop = t, stop
	go c.runTicker(c.tickGen, t, stop)
}

func (c *Controller) stopTickerLocked() {
	if c.ticker == nil {
		return
	}
	c.ticker.Stop()
	close(c.tickStop)
	c.ticker, c.tickStop = nil, nil
	c.tickGen++
}

func (c *Controller) runTicker(gen uint64, t clockwork.Ticker, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-t.Chan():
			c.tick(gen)
		}
	}
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// a tick may race a pause that already replaced the ticker
	if gen != c.tickGen {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	_ = c.applyLocked(ctx, "tick", func(s *match.Session) error {
		s.Tick()
		return nil
	})
}
