package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const scheduledMatchColumns = `id, match_id, team_a, team_b, match_date, match_time, venue, match_type, gender, status,
    final_score, quarter_scores, winner, player_stats, live_started_at, completed_at, created_at, updated_at`

func scanScheduledMatch(row interface{ Scan(...interface{}) error }) (ScheduledMatch, error) {
	var i ScheduledMatch
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.TeamA,
		&i.TeamB,
		&i.MatchDate,
		&i.MatchTime,
		&i.Venue,
		&i.MatchType,
		&i.Gender,
		&i.Status,
		&i.FinalScore,
		&i.QuarterScores,
		&i.Winner,
		&i.PlayerStats,
		&i.LiveStartedAt,
		&i.CompletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createScheduledMatch = `
INSERT INTO scheduled_matches (id, match_id, team_a, team_b, match_date, match_time, venue, match_type, gender, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'scheduled')
RETURNING ` + scheduledMatchColumns

type CreateScheduledMatchParams struct {
	ID        uuid.UUID
	MatchID   string
	TeamA     string
	TeamB     string
	MatchDate string
	MatchTime string
	Venue     string
	MatchType string
	Gender    string
}

func (q *Queries) CreateScheduledMatch(ctx context.Context, arg CreateScheduledMatchParams) (ScheduledMatch, error) {
	row := q.db.QueryRowContext(ctx, createScheduledMatch,
		arg.ID,
		arg.MatchID,
		arg.TeamA,
		arg.TeamB,
		arg.MatchDate,
		arg.MatchTime,
		arg.Venue,
		arg.MatchType,
		arg.Gender,
	)
	return scanScheduledMatch(row)
}

const getScheduledMatch = `SELECT ` + scheduledMatchColumns + ` FROM scheduled_matches WHERE id = $1`

func (q *Queries) GetScheduledMatch(ctx context.Context, id uuid.UUID) (ScheduledMatch, error) {
	return scanScheduledMatch(q.db.QueryRowContext(ctx, getScheduledMatch, id))
}

const getScheduledMatchForUpdate = getScheduledMatch + ` FOR UPDATE`

func (q *Queries) GetScheduledMatchForUpdate(ctx context.Context, id uuid.UUID) (ScheduledMatch, error) {
	return scanScheduledMatch(q.db.QueryRowContext(ctx, getScheduledMatchForUpdate, id))
}

const getScheduledMatchByMatchID = `SELECT ` + scheduledMatchColumns + ` FROM scheduled_matches WHERE match_id = $1`

func (q *Queries) GetScheduledMatchByMatchID(ctx context.Context, matchID string) (ScheduledMatch, error) {
	return scanScheduledMatch(q.db.QueryRowContext(ctx, getScheduledMatchByMatchID, matchID))
}

const listScheduledMatchesByCreated = `SELECT ` + scheduledMatchColumns + ` FROM scheduled_matches ORDER BY created_at DESC`

const listScheduledMatchesByDate = `SELECT ` + scheduledMatchColumns + ` FROM scheduled_matches ORDER BY match_date, match_time, created_at`

func (q *Queries) ListScheduledMatches(ctx context.Context, byDate bool) ([]ScheduledMatch, error) {
	query := listScheduledMatchesByCreated
	if byDate {
		query = listScheduledMatchesByDate
	}
	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ScheduledMatch
	for rows.Next() {
		i, err := scanScheduledMatch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateScheduledMatch = `
UPDATE scheduled_matches
SET team_a = $2, team_b = $3, match_date = $4, match_time = $5, venue = $6, match_type = $7, gender = $8, updated_at = now()
WHERE id = $1
RETURNING ` + scheduledMatchColumns

type UpdateScheduledMatchParams struct {
	ID        uuid.UUID
	TeamA     string
	TeamB     string
	MatchDate string
	MatchTime string
	Venue     string
	MatchType string
	Gender    string
}

func (q *Queries) UpdateScheduledMatch(ctx context.Context, arg UpdateScheduledMatchParams) (ScheduledMatch, error) {
	row := q.db.QueryRowContext(ctx, updateScheduledMatch,
		arg.ID,
		arg.TeamA,
		arg.TeamB,
		arg.MatchDate,
		arg.MatchTime,
		arg.Venue,
		arg.MatchType,
		arg.Gender,
	)
	return scanScheduledMatch(row)
}

const setMatchStatus = `
UPDATE scheduled_matches
SET status = $2, live_started_at = COALESCE($3, live_started_at), updated_at = now()
WHERE id = $1`

type SetMatchStatusParams struct {
	ID            uuid.UUID
	Status        string
	LiveStartedAt sql.NullTime
}

func (q *Queries) SetMatchStatus(ctx context.Context, arg SetMatchStatusParams) error {
	_, err := q.db.ExecContext(ctx, setMatchStatus, arg.ID, arg.Status, arg.LiveStartedAt)
	return err
}

const completeMatch = `
UPDATE scheduled_matches
SET status = 'completed', final_score = $2, quarter_scores = $3, winner = $4, player_stats = $5,
    completed_at = $6, updated_at = now()
WHERE id = $1`

type CompleteMatchParams struct {
	ID            uuid.UUID
	FinalScore    pqtype.NullRawMessage
	QuarterScores pqtype.NullRawMessage
	Winner        sql.NullString
	PlayerStats   pqtype.NullRawMessage
	CompletedAt   time.Time
}

func (q *Queries) CompleteMatch(ctx context.Context, arg CompleteMatchParams) error {
	_, err := q.db.ExecContext(ctx, completeMatch,
		arg.ID,
		arg.FinalScore,
		arg.QuarterScores,
		arg.Winner,
		arg.PlayerStats,
		arg.CompletedAt,
	)
	return err
}

const deleteScheduledMatch = `DELETE FROM scheduled_matches WHERE id = $1`

func (q *Queries) DeleteScheduledMatch(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteScheduledMatch, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createMatchPlayer = `
INSERT INTO match_players (id, match_id, team, jersey_number, player_name)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, match_id, team, jersey_number, player_name, created_at`

type CreateMatchPlayerParams struct {
	ID           uuid.UUID
	MatchID      string
	Team         string
	JerseyNumber string
	PlayerName   string
}

func (q *Queries) CreateMatchPlayer(ctx context.Context, arg CreateMatchPlayerParams) (MatchPlayer, error) {
	row := q.db.QueryRowContext(ctx, createMatchPlayer,
		arg.ID,
		arg.MatchID,
		arg.Team,
		arg.JerseyNumber,
		arg.PlayerName,
	)
	var i MatchPlayer
	err := row.Scan(
		&i.ID,
		&i.MatchID,
		&i.Team,
		&i.JerseyNumber,
		&i.PlayerName,
		&i.CreatedAt,
	)
	return i, err
}

const listPlayersByMatch = `
SELECT id, match_id, team, jersey_number, player_name, created_at
FROM match_players
WHERE match_id = $1
ORDER BY team, length(jersey_number), jersey_number, player_name`

func (q *Queries) ListPlayersByMatch(ctx context.Context, matchID string) ([]MatchPlayer, error) {
	rows, err := q.db.QueryContext(ctx, listPlayersByMatch, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MatchPlayer
	for rows.Next() {
		var i MatchPlayer
		if err := rows.Scan(
			&i.ID,
			&i.MatchID,
			&i.Team,
			&i.JerseyNumber,
			&i.PlayerName,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deletePlayersByMatch = `DELETE FROM match_players WHERE match_id = $1`

func (q *Queries) DeletePlayersByMatch(ctx context.Context, matchID string) error {
	_, err := q.db.ExecContext(ctx, deletePlayersByMatch, matchID)
	return err
}

const deleteMatchPlayer = `DELETE FROM match_players WHERE id = $1`

func (q *Queries) DeleteMatchPlayer(ctx context.Context, id uuid.UUID) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteMatchPlayer, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
