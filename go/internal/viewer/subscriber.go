// Package viewer is the read-only side of the match store: scoreboards
// watch session paths and list live and completed matches.
package viewer

import (
	"context"
	"fmt"
	"sort"

	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/tree"
)

// Source is the read half of the match store.
type Source interface {
	Subscribe(path string, fn func(value any)) func()
	Get(ctx context.Context, path string) (any, error)
}

// LiveMatch is a session that has teams and has not finished.
type LiveMatch struct {
	Path    string               `json:"path"`
	Session *models.MatchSession `json:"session"`
}

// CompletedMatch is a final snapshot from matches/completed.
type CompletedMatch struct {
	ID          string               `json:"id"`
	Session     *models.MatchSession `json:"session"`
	Winner      string               `json:"winner"`
	CompletedAt int64                `json:"completedAt"`
}

type Subscriber struct {
	src   Source
	paths []string
}

// NewSubscriber watches the given session paths.
func NewSubscriber(src Source, paths []string) *Subscriber {
	return &Subscriber{src: src, paths: append([]string(nil), paths...)}
}

// Paths returns the session paths Live scans.
func (s *Subscriber) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Watch streams decoded snapshots of the session at path until ctx ends.
// A slow reader skips intermediate snapshots and only sees the newest. A
// path with no session yields a blank menu-stage session.
func (s *Subscriber) Watch(ctx context.Context, path string) <-chan *models.MatchSession {
	out := make(chan *models.MatchSession)
	latest := make(chan *models.MatchSession, 1)

	unsubscribe := s.src.Subscribe(path, func(v any) {
		snap := decode(v)
		for {
			select {
			case latest <- snap:
				return
			default:
			}
			select {
			case <-latest:
			default:
			}
		}
	})

	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-latest:
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Get reads one session snapshot.
func (s *Subscriber) Get(ctx context.Context, path string) (*models.MatchSession, error) {
	v, err := s.src.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", path, err)
	}
	return decode(v), nil
}

// Live lists the sessions currently in progress.
func (s *Subscriber) Live(ctx context.Context) ([]LiveMatch, error) {
	var out []LiveMatch
	for _, p := range s.paths {
		v, err := s.src.Get(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read session %s: %w", p, err)
		}
		snap := models.DecodeSession(v)
		if snap == nil || snap.TeamA == "" || snap.TeamB == "" {
			continue
		}
		if snap.MatchStage == models.StageFinished {
			continue
		}
		out = append(out, LiveMatch{Path: p, Session: snap})
	}
	return out, nil
}

// Completed lists finished matches, newest first.
func (s *Subscriber) Completed(ctx context.Context) ([]CompletedMatch, error) {
	v, err := s.src.Get(ctx, tree.CompletedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read completed matches: %w", err)
	}
	nodes, _ := v.(map[string]any)
	out := make([]CompletedMatch, 0, len(nodes))
	for id, raw := range nodes {
		snap := models.DecodeSession(raw)
		if snap == nil {
			continue
		}
		node := raw.(map[string]any)
		cm := CompletedMatch{ID: id, Session: snap}
		if a, ok := node["finalScoreA"].(float64); ok {
			snap.ScoreA = int(a)
		}
		if b, ok := node["finalScoreB"].(float64); ok {
			snap.ScoreB = int(b)
		}
		cm.Winner = models.Winner(snap)
		if w, ok := node["winner"].(string); ok && w != "" {
			cm.Winner = w
		}
		if at, ok := node["completedAt"].(float64); ok {
			cm.CompletedAt = int64(at)
		}
		out = append(out, cm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt != out[j].CompletedAt {
			return out[i].CompletedAt > out[j].CompletedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func decode(v any) *models.MatchSession {
	if snap := models.DecodeSession(v); snap != nil {
		return snap
	}
	return models.NewMatchSession()
}
