package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/lib/pq"

	"github.com/courtside/livescore/go/internal/docstore/db"
	"github.com/courtside/livescore/go/internal/models"
	"github.com/courtside/livescore/go/internal/sqlutil"
)

// Postgres implements Store on database/sql with the lib/pq driver.
type Postgres struct {
	conn    *sql.DB
	queries *db.Queries
	clock   clockwork.Clock
}

func NewPostgres(conn *sql.DB, clock clockwork.Clock) *Postgres {
	return &Postgres{
		conn:    conn,
		queries: db.New(conn),
		clock:   clock,
	}
}

var _ Store = (*Postgres)(nil)

// EnsureSchema creates the document tables if needed.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.conn.ExecContext(ctx, db.Schema); err != nil {
		return fmt.Errorf("failed to create docstore schema: %w", err)
	}
	return nil
}

func (p *Postgres) CreateScheduledMatch(ctx context.Context, req CreateMatchRequest) (*models.ScheduledMatch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	matchID := req.MatchID
	if matchID == "" {
		matchID = NewMatchID(p.clock.Now())
	}
	row, err := p.queries.CreateScheduledMatch(ctx, db.CreateScheduledMatchParams{
		ID:        uuid.New(),
		MatchID:   matchID,
		TeamA:     strings.TrimSpace(req.TeamA),
		TeamB:     strings.TrimSpace(req.TeamB),
		MatchDate: req.Date,
		MatchTime: req.Time,
		Venue:     req.Venue,
		MatchType: req.MatchType,
		Gender:    req.Gender,
	})
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("%w: match id %q already exists", ErrInvalid, matchID)
		}
		return nil, fmt.Errorf("failed to create scheduled match: %w", err)
	}
	return dbMatchToModel(row)
}

func (p *Postgres) GetScheduledMatch(ctx context.Context, id string) (*models.ScheduledMatch, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}
	row, err := p.queries.GetScheduledMatch(ctx, uid)
	if err != nil {
		return nil, notFound(err, "failed to get scheduled match")
	}
	return dbMatchToModel(row)
}

func (p *Postgres) GetScheduledMatchByMatchID(ctx context.Context, matchID string) (*models.ScheduledMatch, error) {
	row, err := p.queries.GetScheduledMatchByMatchID(ctx, matchID)
	if err != nil {
		return nil, notFound(err, "failed to get scheduled match by match id")
	}
	return dbMatchToModel(row)
}

func (p *Postgres) ListScheduledMatches(ctx context.Context, order Order) ([]*models.ScheduledMatch, error) {
	rows, err := p.queries.ListScheduledMatches(ctx, order == OrderDateAsc)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled matches: %w", err)
	}
	out := make([]*models.ScheduledMatch, 0, len(rows))
	for _, row := range rows {
		sm, err := dbMatchToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	return out, nil
}

func (p *Postgres) UpdateScheduledMatch(ctx context.Context, id string, req UpdateMatchRequest) (*models.ScheduledMatch, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var updated db.ScheduledMatch
	err = sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		current, err := q.GetScheduledMatchForUpdate(ctx, uid)
		if err != nil {
			return notFound(err, "failed to load scheduled match")
		}
		if models.MatchStatus(current.Status) == models.MatchStatusCompleted {
			return ErrCompleted
		}
		updated, err = q.UpdateScheduledMatch(ctx, db.UpdateScheduledMatchParams{
			ID:        uid,
			TeamA:     strings.TrimSpace(req.TeamA),
			TeamB:     strings.TrimSpace(req.TeamB),
			MatchDate: req.Date,
			MatchTime: req.Time,
			Venue:     req.Venue,
			MatchType: req.MatchType,
			Gender:    req.Gender,
		})
		if err != nil {
			return fmt.Errorf("failed to update scheduled match: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dbMatchToModel(updated)
}

func (p *Postgres) SetMatchStatus(ctx context.Context, id string, status models.MatchStatus) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		current, err := q.GetScheduledMatchForUpdate(ctx, uid)
		if err != nil {
			return notFound(err, "failed to load scheduled match")
		}
		from := models.MatchStatus(current.Status)
		if from == status {
			return nil
		}
		if from == models.MatchStatusCompleted {
			return ErrCompleted
		}
		if !from.CanTransition(status) {
			return ErrInvalidTransition
		}

		params := db.SetMatchStatusParams{ID: uid, Status: string(status)}
		if status == models.MatchStatusLive {
			now := p.clock.Now().UTC()
			params.LiveStartedAt = sqlutil.ToSqlTime(&now)
		}
		if err := q.SetMatchStatus(ctx, params); err != nil {
			return fmt.Errorf("failed to set match status: %w", err)
		}
		return nil
	})
}

func (p *Postgres) CompleteMatch(ctx context.Context, id string, result models.MatchResult) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	finalScore, err := sqlutil.ToNullRawMessage(result.FinalScore)
	if err != nil {
		return err
	}
	quarterScores, err := sqlutil.ToNullRawMessage(result.QuarterScores)
	if err != nil {
		return err
	}
	playerStats, err := sqlutil.ToNullRawMessage(result.PlayerStats)
	if err != nil {
		return err
	}

	return sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		current, err := q.GetScheduledMatchForUpdate(ctx, uid)
		if err != nil {
			return notFound(err, "failed to load scheduled match")
		}
		if models.MatchStatus(current.Status) == models.MatchStatusCompleted {
			return ErrCompleted
		}
		err = q.CompleteMatch(ctx, db.CompleteMatchParams{
			ID:            uid,
			FinalScore:    finalScore,
			QuarterScores: quarterScores,
			Winner:        sql.NullString{String: result.Winner, Valid: result.Winner != ""},
			PlayerStats:   playerStats,
			CompletedAt:   result.CompletedAt.UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to complete match: %w", err)
		}
		return nil
	})
}

func (p *Postgres) DeleteScheduledMatch(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	return sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		current, err := q.GetScheduledMatchForUpdate(ctx, uid)
		if err != nil {
			return notFound(err, "failed to load scheduled match")
		}
		if err := q.DeletePlayersByMatch(ctx, current.MatchID); err != nil {
			return fmt.Errorf("failed to delete match players: %w", err)
		}
		if _, err := q.DeleteScheduledMatch(ctx, uid); err != nil {
			return fmt.Errorf("failed to delete scheduled match: %w", err)
		}
		return nil
	})
}

func (p *Postgres) AddPlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	var out []models.RosterPlayer
	err := sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		var err error
		out, err = insertPlayers(ctx, q, matchID, players)
		return err
	})
	return out, err
}

func (p *Postgres) ReplacePlayers(ctx context.Context, matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	var out []models.RosterPlayer
	err := sqlutil.Run(ctx, p.conn, newQueries, func(q *db.Queries) error {
		if err := q.DeletePlayersByMatch(ctx, matchID); err != nil {
			return fmt.Errorf("failed to clear match players: %w", err)
		}
		var err error
		out, err = insertPlayers(ctx, q, matchID, players)
		return err
	})
	return out, err
}

func insertPlayers(ctx context.Context, q *db.Queries, matchID string, players []PlayerInput) ([]models.RosterPlayer, error) {
	if strings.TrimSpace(matchID) == "" {
		return nil, ErrInvalid
	}
	out := make([]models.RosterPlayer, 0, len(players))
	for _, in := range cleanPlayers(players) {
		row, err := q.CreateMatchPlayer(ctx, db.CreateMatchPlayerParams{
			ID:           uuid.New(),
			MatchID:      matchID,
			Team:         string(in.Team),
			JerseyNumber: in.JerseyNumber,
			PlayerName:   in.PlayerName,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to add player %q: %w", in.PlayerName, err)
		}
		out = append(out, dbPlayerToModel(row))
	}
	return out, nil
}

func (p *Postgres) ListPlayersByMatch(ctx context.Context, matchID string) ([]models.RosterPlayer, error) {
	rows, err := p.queries.ListPlayersByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list match players: %w", err)
	}
	out := make([]models.RosterPlayer, 0, len(rows))
	for _, row := range rows {
		out = append(out, dbPlayerToModel(row))
	}
	return out, nil
}

func (p *Postgres) DeletePlayer(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	n, err := p.queries.DeleteMatchPlayer(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func newQueries(tx *sql.Tx) *db.Queries {
	return db.New(tx)
}

func notFound(err error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// dbMatchToModel converts a database row to the domain model.
func dbMatchToModel(row db.ScheduledMatch) (*models.ScheduledMatch, error) {
	sm := &models.ScheduledMatch{
		ID:            row.ID.String(),
		MatchID:       row.MatchID,
		TeamA:         row.TeamA,
		TeamB:         row.TeamB,
		Date:          row.MatchDate,
		Time:          row.MatchTime,
		Venue:         row.Venue,
		MatchType:     row.MatchType,
		Gender:        row.Gender,
		Status:        models.MatchStatus(row.Status),
		Winner:        sqlutil.FromSqlString(row.Winner, ""),
		LiveStartedAt: sqlutil.FromSqlTime(row.LiveStartedAt),
		CompletedAt:   sqlutil.FromSqlTime(row.CompletedAt),
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.FinalScore.Valid {
		sm.FinalScore = &models.PeriodScore{}
		if err := sqlutil.FromNullRawMessage(row.FinalScore, sm.FinalScore); err != nil {
			return nil, err
		}
	}
	if err := sqlutil.FromNullRawMessage(row.QuarterScores, &sm.QuarterScores); err != nil {
		return nil, err
	}
	if err := sqlutil.FromNullRawMessage(row.PlayerStats, &sm.PlayerStats); err != nil {
		return nil, err
	}
	return sm, nil
}

func dbPlayerToModel(row db.MatchPlayer) models.RosterPlayer {
	team, ok := models.ParseTeam(row.Team)
	if !ok {
		team = models.TeamA
	}
	return models.RosterPlayer{
		ID:           row.ID.String(),
		MatchID:      row.MatchID,
		Team:         team,
		JerseyNumber: row.JerseyNumber,
		PlayerName:   row.PlayerName,
		CreatedAt:    row.CreatedAt,
	}
}
