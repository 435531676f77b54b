package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/scoring"
	"github.com/courtside/livescore/go/internal/tree"
)

// Kind names a collection of store nodes the admin may delete.
type Kind string

const (
	KindPast      Kind = "past"
	KindScheduled Kind = "scheduled"
	KindCompleted Kind = "completed"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPast, KindScheduled, KindCompleted:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown kind %q", docstore.ErrInvalid, s)
}

func (k Kind) path(id string) string {
	switch k {
	case KindPast:
		return tree.PastPath(id)
	case KindScheduled:
		return tree.ScheduledPath(id)
	default:
		return tree.CompletedPath(id)
	}
}

// PastMatches lists saved matches, newest first.
func (s *Service) PastMatches(ctx context.Context) ([]models.PastMatch, error) {
	raw, err := s.tree.Get(ctx, tree.PastRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read past matches: %w", err)
	}
	nodes, _ := raw.(map[string]any)
	out := make([]models.PastMatch, 0, len(nodes))
	for id, node := range nodes {
		data, err := json.Marshal(node)
		if err != nil {
			continue
		}
		var pm models.PastMatch
		if err := json.Unmarshal(data, &pm); err != nil {
			log.Warn().Err(err).Str("past_id", id).Msg("skipping unreadable past match")
			continue
		}
		if pm.ID == "" {
			pm.ID = id
		}
		out = append(out, pm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt != out[j].SavedAt {
			return out[i].SavedAt > out[j].SavedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// DeletePaths removes the given nodes of one kind in a single write.
func (s *Service) DeletePaths(ctx context.Context, kind Kind, ids []string) (int, error) {
	updates := make(map[string]any, len(ids))
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		updates[kind.path(id)] = nil
		clean = append(clean, id)
	}
	if len(updates) == 0 {
		return 0, nil
	}
	if err := s.tree.Update(ctx, updates); err != nil {
		return 0, fmt.Errorf("%w: %w", scoring.ErrSyncFailed, err)
	}

	if kind == KindPast && s.archive != nil {
		for _, id := range clean {
			if err := s.archive.DeletePastMatch(ctx, id); err != nil {
				log.Warn().Err(err).Str("past_id", id).Msg("failed to delete archived past match")
			}
		}
	}
	log.Info().Str("kind", string(kind)).Int("count", len(updates)).Msg("deleted store nodes")
	return len(updates), nil
}

// CleanupReport lists what CleanupOrphans removed.
type CleanupReport struct {
	Sessions  []string `json:"sessions"`
	Completed []string `json:"completed"`
	Scheduled []string `json:"scheduled"`
}

// CleanupOrphans clears court sessions and completed or scheduled nodes
// that no scheduled fixture accounts for, matched by matchId or else by the
// team pair.
func (s *Service) CleanupOrphans(ctx context.Context) (*CleanupReport, error) {
	fixtures, err := s.docs.ListScheduledMatches(ctx, docstore.OrderCreatedDesc)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled matches: %w", err)
	}
	known := newFixtureIndex(fixtures)
	report := &CleanupReport{Sessions: []string{}, Completed: []string{}, Scheduled: []string{}}

	if s.registry != nil {
		controllers, err := s.registry.Controllers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load court sessions: %w", err)
		}
		for _, c := range controllers {
			st := c.View().Session
			if st.TeamA == "" && st.TeamB == "" {
				continue
			}
			if known.has(st.MatchID, st.TeamA, st.TeamB) {
				continue
			}
			c.Discard(ctx)
			report.Sessions = append(report.Sessions, c.Base())
		}
	}

	updates := make(map[string]any)
	completed, err := s.tree.Get(ctx, tree.CompletedRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read completed matches: %w", err)
	}
	nodes, _ := completed.(map[string]any)
	for id, raw := range nodes {
		st := models.DecodeSession(raw)
		if st != nil && known.has(st.MatchID, st.TeamA, st.TeamB) {
			continue
		}
		if st == nil && known.matchIDs[id] {
			continue
		}
		updates[tree.CompletedPath(id)] = nil
		report.Completed = append(report.Completed, id)
	}

	scheduled, err := s.tree.Get(ctx, tree.ScheduledRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read scheduled nodes: %w", err)
	}
	nodes, _ = scheduled.(map[string]any)
	for id := range nodes {
		if known.docIDs[id] {
			continue
		}
		updates[tree.ScheduledPath(id)] = nil
		report.Scheduled = append(report.Scheduled, id)
	}

	if len(updates) > 0 {
		if err := s.tree.Update(ctx, updates); err != nil {
			return nil, fmt.Errorf("%w: %w", scoring.ErrSyncFailed, err)
		}
	}
	sort.Strings(report.Sessions)
	sort.Strings(report.Completed)
	sort.Strings(report.Scheduled)

	log.Info().
		Int("sessions", len(report.Sessions)).
		Int("completed", len(report.Completed)).
		Int("scheduled", len(report.Scheduled)).
		Msg("orphan cleanup finished")
	return report, nil
}

type fixtureIndex struct {
	docIDs   map[string]bool
	matchIDs map[string]bool
	pairs    map[string]bool
}

func newFixtureIndex(fixtures []*models.ScheduledMatch) fixtureIndex {
	idx := fixtureIndex{
		docIDs:   make(map[string]bool, len(fixtures)),
		matchIDs: make(map[string]bool, len(fixtures)),
		pairs:    make(map[string]bool, len(fixtures)),
	}
	for _, f := range fixtures {
		idx.docIDs[f.ID] = true
		idx.matchIDs[f.MatchID] = true
		idx.pairs[pairKey(f.TeamA, f.TeamB)] = true
	}
	return idx
}

func (idx fixtureIndex) has(matchID, teamA, teamB string) bool {
	if matchID != "" {
		return idx.matchIDs[matchID]
	}
	return idx.pairs[pairKey(teamA, teamB)]
}

func pairKey(a, b string) string {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}
