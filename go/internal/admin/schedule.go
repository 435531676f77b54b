// Package admin holds the scheduler and administrator flows: fixtures and
// their rosters, saved past matches, and cleanup of stale store nodes.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/courtside/livescore/go/internal/docstore"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/scoring"
	"github.com/courtside/livescore/go/internal/tree"
)

// Archive is the optional local copy of past matches.
type Archive interface {
	DeletePastMatch(ctx context.Context, id string) error
}

type Service struct {
	docs     docstore.Store
	tree     tree.Tree
	registry *scoring.Registry
	archive  Archive
	clock    clockwork.Clock
}

// New builds the service. archive may be nil.
func New(docs docstore.Store, t tree.Tree, registry *scoring.Registry, archive Archive, clock clockwork.Clock) *Service {
	return &Service{docs: docs, tree: t, registry: registry, archive: archive, clock: clock}
}

// CreateMatch stores the fixture and mirrors it under matches/scheduled so
// viewers can list upcoming games. If the mirror write fails the fixture is
// removed again.
func (s *Service) CreateMatch(ctx context.Context, req docstore.CreateMatchRequest) (*models.ScheduledMatch, error) {
	sm, err := s.docs.CreateScheduledMatch(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduled match: %w", err)
	}
	if err := s.tree.Set(ctx, tree.ScheduledPath(sm.ID), scheduledNode(sm)); err != nil {
		if delErr := s.docs.DeleteScheduledMatch(ctx, sm.ID); delErr != nil {
			log.Error().Err(delErr).Str("schedule_id", sm.ID).Msg("failed to roll back scheduled match")
		}
		return nil, fmt.Errorf("%w: %w", scoring.ErrSyncFailed, err)
	}

	log.Info().
		Str("schedule_id", sm.ID).
		Str("match_id", sm.MatchID).
		Msg("scheduled match created")
	return sm, nil
}

// UpdateMatch edits a fixture that has not completed.
func (s *Service) UpdateMatch(ctx context.Context, id string, req docstore.UpdateMatchRequest) (*models.ScheduledMatch, error) {
	sm, err := s.docs.UpdateScheduledMatch(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("failed to update scheduled match: %w", err)
	}
	base := tree.ScheduledPath(sm.ID)
	err = s.tree.Update(ctx, map[string]any{
		tree.Join(base, "teamA"):     sm.TeamA,
		tree.Join(base, "teamB"):     sm.TeamB,
		tree.Join(base, "date"):      sm.Date,
		tree.Join(base, "time"):      sm.Time,
		tree.Join(base, "venue"):     sm.Venue,
		tree.Join(base, "matchType"): sm.MatchType,
		tree.Join(base, "gender"):    sm.Gender,
	})
	if err != nil {
		log.Error().Err(err).Str("schedule_id", sm.ID).Msg("failed to mirror scheduled match update")
	}
	return sm, nil
}

func (s *Service) ListMatches(ctx context.Context, order docstore.Order) ([]*models.ScheduledMatch, error) {
	return s.docs.ListScheduledMatches(ctx, order)
}

// GetMatch looks a fixture up by document id or matchId.
func (s *Service) GetMatch(ctx context.Context, id string) (*models.ScheduledMatch, error) {
	sm, err := s.docs.GetScheduledMatch(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		sm, err = s.docs.GetScheduledMatchByMatchID(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scheduled match %s: %w", id, err)
	}
	return sm, nil
}

// DeleteMatch removes a fixture, its roster, its store nodes, and any court
// session still scoring it.
func (s *Service) DeleteMatch(ctx context.Context, id string) error {
	sm, err := s.GetMatch(ctx, id)
	if err != nil {
		return err
	}

	if s.registry != nil {
		controllers, err := s.registry.Controllers(ctx)
		if err != nil {
			return fmt.Errorf("failed to load court sessions: %w", err)
		}
		for _, c := range controllers {
			if c.View().Session.MatchID == sm.MatchID {
				c.Discard(ctx)
				log.Info().Str("court", c.Court()).Str("match_id", sm.MatchID).Msg("cleared session of deleted match")
			}
		}
	}

	if err := s.docs.DeleteScheduledMatch(ctx, sm.ID); err != nil {
		return fmt.Errorf("failed to delete scheduled match: %w", err)
	}
	err = s.tree.Update(ctx, map[string]any{
		tree.ScheduledPath(sm.ID):      nil,
		tree.CompletedPath(sm.MatchID): nil,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", scoring.ErrSyncFailed, err)
	}

	log.Info().Str("schedule_id", sm.ID).Str("match_id", sm.MatchID).Msg("scheduled match deleted")
	return nil
}

// AddPlayers appends roster rows to a fixture.
func (s *Service) AddPlayers(ctx context.Context, matchID string, players []docstore.PlayerInput) ([]models.RosterPlayer, error) {
	if _, err := s.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	out, err := s.docs.AddPlayers(ctx, matchID, players)
	if err != nil {
		return nil, fmt.Errorf("failed to add players: %w", err)
	}
	return out, nil
}

// ReplacePlayers swaps a fixture's roster, as a sheet import does.
func (s *Service) ReplacePlayers(ctx context.Context, matchID string, players []docstore.PlayerInput) ([]models.RosterPlayer, error) {
	sm, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if sm.Status == models.MatchStatusCompleted {
		return nil, docstore.ErrCompleted
	}
	out, err := s.docs.ReplacePlayers(ctx, sm.MatchID, players)
	if err != nil {
		return nil, fmt.Errorf("failed to replace players: %w", err)
	}
	log.Info().Str("match_id", sm.MatchID).Int("players", len(out)).Msg("roster replaced")
	return out, nil
}

func (s *Service) ListPlayers(ctx context.Context, matchID string) ([]models.RosterPlayer, error) {
	return s.docs.ListPlayersByMatch(ctx, matchID)
}

func (s *Service) DeletePlayer(ctx context.Context, id string) error {
	return s.docs.DeletePlayer(ctx, id)
}

func scheduledNode(sm *models.ScheduledMatch) map[string]any {
	return map[string]any{
		"matchId":   sm.MatchID,
		"teamA":     sm.TeamA,
		"teamB":     sm.TeamB,
		"date":      sm.Date,
		"time":      sm.Time,
		"venue":     sm.Venue,
		"matchType": sm.MatchType,
		"gender":    sm.Gender,
		"status":    string(sm.Status),
		"hasScore":  false,
		"createdAt": sm.CreatedAt.UnixMilli(),
	}
}
