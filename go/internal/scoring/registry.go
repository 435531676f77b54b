package scoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/match"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

var ErrUnknownCourt = errors.New("unknown court")

// Mode selects how courts map to session paths.
type Mode string

const (
	// ModeCurrent keeps a single session at matches/current.
	ModeCurrent Mode = "current"
	// ModeCourt keeps one session per court at matches/<court-key>.
	ModeCourt Mode = "court"
)

type RegistryConfig struct {
	Mode Mode
	// Courts lists the court display names. Empty accepts any court.
	Courts     []string
	Settings   match.Settings
	ScoreDelay time.Duration
}

// Registry hands out one Controller per session path.
type Registry struct {
	deps Deps
	cfg  RegistryConfig

	mu          sync.Mutex
	controllers map[string]*slot
}

// slot is a controller being resumed or ready. ready closes once c or err
// is set.
type slot struct {
	c     *Controller
	err   error
	ready chan struct{}
}

func NewRegistry(deps Deps, cfg RegistryConfig) *Registry {
	if cfg.Mode == "" {
		cfg.Mode = ModeCourt
	}
	return &Registry{deps: deps, cfg: cfg, controllers: make(map[string]*slot)}
}

// Courts returns the configured court names.
func (r *Registry) Courts() []string {
	return append([]string(nil), r.cfg.Courts...)
}

// Mode returns the path mode.
func (r *Registry) Mode() Mode { return r.cfg.Mode }

// SessionPath returns the tree path of court's session.
func (r *Registry) SessionPath(court string) (string, error) {
	if r.cfg.Mode == ModeCurrent {
		return tree.CurrentPath(), nil
	}
	name, err := r.courtName(court)
	if err != nil {
		return "", err
	}
	return tree.CourtPath(name), nil
}

// SessionPaths returns every session path the registry may write.
func (r *Registry) SessionPaths() []string {
	if r.cfg.Mode == ModeCurrent || len(r.cfg.Courts) == 0 {
		return []string{tree.CurrentPath()}
	}
	out := make([]string, 0, len(r.cfg.Courts))
	for _, c := range r.cfg.Courts {
		out = append(out, tree.CourtPath(c))
	}
	return out
}

func (r *Registry) courtName(court string) (string, error) {
	key := tree.CourtKey(court)
	if key == "" {
		if len(r.cfg.Courts) > 0 {
			return r.cfg.Courts[0], nil
		}
		return models.DefaultCourt, nil
	}
	if len(r.cfg.Courts) == 0 {
		return court, nil
	}
	for _, c := range r.cfg.Courts {
		if tree.CourtKey(c) == key {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCourt, court)
}

// Controller returns the controller for court, creating and resuming it on
// first use.
func (r *Registry) Controller(ctx context.Context, court string) (*Controller, error) {
	base, err := r.SessionPath(court)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if sl, ok := r.controllers[base]; ok {
		r.mu.Unlock()
		select {
		case <-sl.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if sl.err != nil {
			return nil, sl.err
		}
		return sl.c, nil
	}
	sl := &slot{ready: make(chan struct{})}
	r.controllers[base] = sl
	r.mu.Unlock()

	// resume outside the lock so a slow store only delays this court
	c, err := r.resume(ctx, court, base)

	r.mu.Lock()
	sl.c, sl.err = c, err
	if err != nil {
		delete(r.controllers, base)
	}
	close(sl.ready)
	r.mu.Unlock()
	return c, err
}

func (r *Registry) resume(ctx context.Context, court, base string) (*Controller, error) {
	name := models.DefaultCourt
	if r.cfg.Mode == ModeCourt {
		var err error
		if name, err = r.courtName(court); err != nil {
			return nil, err
		}
	} else if len(r.cfg.Courts) > 0 {
		name = r.cfg.Courts[0]
	}
	c := NewController(r.deps, Config{
		Court:      name,
		Base:       base,
		Settings:   r.cfg.Settings,
		ScoreDelay: r.cfg.ScoreDelay,
	})
	if _, err := c.Resume(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("court", name).Str("path", base).Msg("controller ready")
	return c, nil
}

// Controllers returns a controller for every configured court, or the single
// default controller when courts are not split.
func (r *Registry) Controllers(ctx context.Context) ([]*Controller, error) {
	courts := r.cfg.Courts
	if r.cfg.Mode == ModeCurrent || len(courts) == 0 {
		courts = []string{""}
	}
	out := make([]*Controller, 0, len(courts))
	for _, court := range courts {
		c, err := r.Controller(ctx, court)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Close flushes and stops every controller.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for base, sl := range r.controllers {
		// still resuming
		if sl.c == nil {
			continue
		}
		if err := sl.c.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", base, err))
		}
		delete(r.controllers, base)
	}
	return errors.Join(errs...)
}
