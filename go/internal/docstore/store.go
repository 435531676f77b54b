// Package docstore holds the scheduledMatches and players collections.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/courtside/livescore/go/internal/models"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrCompleted         = errors.New("match is completed and can no longer change")
	ErrInvalidTransition = errors.New("invalid match status transition")
	ErrInvalid           = errors.New("invalid document")
)

// Order selects the sort of ListScheduledMatches.
type Order int

const (
	// OrderCreatedDesc lists newest fixtures first.
	OrderCreatedDesc Order = iota
	// OrderDateAsc lists by match date then time.
	OrderDateAsc
)

// Store is the document store used by the scheduler, scorer and admin flows.
type Store interface {
	CreateScheduledMatch(ctx context.Context, req CreateMatchRequest) (*models.ScheduledMatch, error)
	GetScheduledMatch(ctx context.Context, id string) (*models.ScheduledMatch, error)
	GetScheduledMatchByMatchID(ctx context.Context, matchID string) (*models.ScheduledMatch, error)
	ListScheduledMatches(ctx context.Context, order Order) ([]*models.ScheduledMatch, error)
	UpdateScheduledMatch(ctx context.Context, id string, req UpdateMatchRequest) (*models.ScheduledMatch, error)
	SetMatchStatus(ctx context.Context, id string, status models.MatchStatus) error
	CompleteMatch(ctx context.Context, id string, result models.MatchResult) error
	// DeleteScheduledMatch removes the fixture and its players.
	DeleteScheduledMatch(ctx context.Context, id string) error

	AddPlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error)
	// ReplacePlayers swaps the whole roster of a match in one step.
	ReplacePlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error)
	ListPlayersByMatch(ctx context.Context, matchID string) ([]models.RosterPlayer, error)
	DeletePlayer(ctx context.Context, id string) error
}

// CreateMatchRequest holds the fields a scheduler fills in.
type CreateMatchRequest struct {
	MatchID   string
	TeamA     string
	TeamB     string
	Date      string
	Time      string
	Venue     string
	MatchType string
	Gender    string
}

// UpdateMatchRequest edits a fixture that has not completed.
type UpdateMatchRequest struct {
	TeamA     string
	TeamB     string
	Date      string
	Time      string
	Venue     string
	MatchType string
	Gender    string
}

// PlayerInput is one roster row to store.
type PlayerInput struct {
	Team         models.Team
	JerseyNumber string
	PlayerName   string
}

func (r CreateMatchRequest) validate() error {
	if strings.TrimSpace(r.TeamA) == "" || strings.TrimSpace(r.TeamB) == "" {
		return fmt.Errorf("%w: both team names are required", ErrInvalid)
	}
	if strings.EqualFold(strings.TrimSpace(r.TeamA), strings.TrimSpace(r.TeamB)) {
		return fmt.Errorf("%w: teams must be different", ErrInvalid)
	}
	return nil
}

func (r UpdateMatchRequest) validate() error {
	return CreateMatchRequest{TeamA: r.TeamA, TeamB: r.TeamB}.validate()
}

// NewMatchID returns a readable fixture id such as match_1718000000000_3f9a1c.
func NewMatchID(now time.Time) string {
	return fmt.Sprintf("match_%d_%s", now.UnixMilli(), uuid.NewString()[:6])
}

// cleanPlayers drops rows without a name or jersey and defaults the team.
func cleanPlayers(players []PlayerInput) []PlayerInput {
	out := make([]PlayerInput, 0, len(players))
	for _, p := range players {
		p.PlayerName = strings.TrimSpace(p.PlayerName)
		p.JerseyNumber = strings.TrimSpace(p.JerseyNumber)
		if p.PlayerName == "" || p.JerseyNumber == "" {
			continue
		}
		if p.Team != models.TeamB {
			p.Team = models.TeamA
		}
		out = append(out, p)
	}
	return out
}
