package db

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type ScheduledMatch struct {
	ID            uuid.UUID             `json:"id"`
	MatchID       string                `json:"match_id"`
	TeamA         string                `json:"team_a"`
	TeamB         string                `json:"team_b"`
	MatchDate     string                `json:"match_date"`
	MatchTime     string                `json:"match_time"`
	Venue         string                `json:"venue"`
	MatchType     string                `json:"match_type"`
	Gender        string                `json:"gender"`
	Status        string                `json:"status"`
	FinalScore    pqtype.NullRawMessage `json:"final_score"`
	QuarterScores pqtype.NullRawMessage `json:"quarter_scores"`
	Winner        sql.NullString        `json:"winner"`
	PlayerStats   pqtype.NullRawMessage `json:"player_stats"`
	LiveStartedAt sql.NullTime          `json:"live_started_at"`
	CompletedAt   sql.NullTime          `json:"completed_at"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

type MatchPlayer struct {
	ID           uuid.UUID `json:"id"`
	MatchID      string    `json:"match_id"`
	Team         string    `json:"team"`
	JerseyNumber string    `json:"jersey_number"`
	PlayerName   string    `json:"player_name"`
	CreatedAt    time.Time `json:"created_at"`
}
