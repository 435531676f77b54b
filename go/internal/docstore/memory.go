package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/courtside/livescore/go/internal/models"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	matches map[string]*models.ScheduledMatch
	players map[string]models.RosterPlayer
}

func NewMemory(clock clockwork.Clock) *Memory {
	return &Memory{
		clock:   clock,
		matches: make(map[string]*models.ScheduledMatch),
		players: make(map[string]models.RosterPlayer),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) CreateScheduledMatch(ctx context.Context, req CreateMatchRequest) (*models.ScheduledMatch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := m.clock.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()

	matchID := req.MatchID
	if matchID == "" {
		matchID = NewMatchID(now)
	}
	for _, existing := range m.matches {
		if existing.MatchID == matchID {
			return nil, fmt.Errorf("%w: match id %q already exists", ErrInvalid, matchID)
		}
	}

	sm := &models.ScheduledMatch{
		ID:        uuid.NewString(),
		MatchID:   matchID,
		TeamA:     strings.TrimSpace(req.TeamA),
		TeamB:     strings.TrimSpace(req.TeamB),
		Date:      req.Date,
		Time:      req.Time,
		Venue:     req.Venue,
		MatchType: req.MatchType,
		Gender:    req.Gender,
		Status:    models.MatchStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.matches[sm.ID] = sm
	return copyMatch(sm), nil
}

func (m *Memory) GetScheduledMatch(ctx context.Context, id string) (*models.ScheduledMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sm, ok := m.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyMatch(sm), nil
}

func (m *Memory) GetScheduledMatchByMatchID(ctx context.Context, matchID string) (*models.ScheduledMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sm := range m.matches {
		if sm.MatchID == matchID {
			return copyMatch(sm), nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListScheduledMatches(ctx context.Context, order Order) ([]*models.ScheduledMatch, error) {
	m.mu.RLock()
	out := make([]*models.ScheduledMatch, 0, len(m.matches))
	for _, sm := range m.matches {
		out = append(out, copyMatch(sm))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if order == OrderDateAsc {
			if out[i].Date != out[j].Date {
				return out[i].Date < out[j].Date
			}
			if out[i].Time != out[j].Time {
				return out[i].Time < out[j].Time
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateScheduledMatch(ctx context.Context, id string, req UpdateMatchRequest) (*models.ScheduledMatch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if sm.Status == models.MatchStatusCompleted {
		return nil, ErrCompleted
	}
	sm.TeamA = strings.TrimSpace(req.TeamA)
	sm.TeamB = strings.TrimSpace(req.TeamB)
	sm.Date = req.Date
	sm.Time = req.Time
	sm.Venue = req.Venue
	sm.MatchType = req.MatchType
	sm.Gender = req.Gender
	sm.UpdatedAt = m.clock.Now().UTC()
	return copyMatch(sm), nil
}

func (m *Memory) SetMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.matches[id]
	if !ok {
		return ErrNotFound
	}
	if sm.Status == status {
		return nil
	}
	if sm.Status == models.MatchStatusCompleted {
		return ErrCompleted
	}
	if !sm.Status.CanTransition(status) {
		return ErrInvalidTransition
	}
	now := m.clock.Now().UTC()
	sm.Status = status
	sm.UpdatedAt = now
	if status == models.MatchStatusLive {
		sm.LiveStartedAt = &now
	}
	return nil
}

func (m *Memory) CompleteMatch(ctx context.Context, id string, result models.MatchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.matches[id]
	if !ok {
		return ErrNotFound
	}
	if sm.Status == models.MatchStatusCompleted {
		return ErrCompleted
	}
	final := result.FinalScore
	completedAt := result.CompletedAt.UTC()
	sm.Status = models.MatchStatusCompleted
	sm.FinalScore = &final
	sm.QuarterScores = result.QuarterScores
	sm.Winner = result.Winner
	sm.PlayerStats = result.PlayerStats
	sm.CompletedAt = &completedAt
	sm.UpdatedAt = m.clock.Now().UTC()
	return nil
}

func (m *Memory) DeleteScheduledMatch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, ok := m.matches[id]
	if !ok {
		return ErrNotFound
	}
	for pid, p := range m.players {
		if p.MatchID == sm.MatchID {
			delete(m.players, pid)
		}
	}
	delete(m.matches, id)
	return nil
}

func (m *Memory) AddPlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertPlayersLocked(matchID, players)
}

func (m *Memory) ReplacePlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for pid, p := range m.players {
		if p.MatchID == matchID {
			delete(m.players, pid)
		}
	}
	return m.insertPlayersLocked(matchID, players)
}

func (m *Memory) insertPlayersLocked(matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, ErrInvalid
	}
	now := m.clock.Now().UTC()
	out := make([]models.RosterPlayer, 0, len(players))
	for _, p := range cleanPlayers(players) {
		rp := models.RosterPlayer{
			ID:           uuid.NewString(),
			MatchID:      matchID,
			Team:         p.Team,
			JerseyNumber: p.JerseyNumber,
			PlayerName:   p.PlayerName,
			CreatedAt:    now,
		}
		m.players[rp.ID] = rp
		out = append(out, rp)
	}
	return out, nil
}

func (m *Memory) ListPlayersByMatch(ctx context.Context, matchID string) ([]models.RosterPlayer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.RosterPlayer, 0)
	for _, p := range m.players {
		if p.MatchID == matchID {
			out = append(out, p)
		}
	}
	sortPlayers(out)
	return out, nil
}

func (m *Memory) DeletePlayer(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[id]; !ok {
		return ErrNotFound
	}
	delete(m.players, id)
	return nil
}

// sortPlayers orders a roster by team, then jersey, then name.
func sortPlayers(players []models.RosterPlayer) {
	sort.SliceStable(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if a.Team != b.Team {
			return a.Team < b.Team
		}
		if a.JerseyNumber != b.JerseyNumber {
			if len(a.JerseyNumber) != len(b.JerseyNumber) {
				return len(a.JerseyNumber) < len(b.JerseyNumber)
			}
			return a.JerseyNumber < b.JerseyNumber
		}
		return a.PlayerName < b.PlayerName
	})
}

func copyMatch(sm *models.ScheduledMatch) *models.ScheduledMatch {
	cp := *sm
	if sm.FinalScore != nil {
		fs := *sm.FinalScore
		cp.FinalScore = &fs
	}
	if sm.QuarterScores != nil {
		cp.QuarterScores = make(map[string]models.PeriodScore, len(sm.QuarterScores))
		for k, v := range sm.QuarterScores {
			cp.QuarterScores[k] = v
		}
	}
	if sm.PlayerStats != nil {
		cp.PlayerStats = make(map[string]models.SessionPlayer, len(sm.PlayerStats))
		for k, v := range sm.PlayerStats {
			cp.PlayerStats[k] = v
		}
	}
	return &cp
}
