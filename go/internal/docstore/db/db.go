package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// Schema creates the collections' tables.
const Schema = `
CREATE TABLE IF NOT EXISTS scheduled_matches (
    id              UUID PRIMARY KEY,
    match_id        TEXT NOT NULL UNIQUE,
    team_a          TEXT NOT NULL,
    team_b          TEXT NOT NULL,
    match_date      TEXT NOT NULL DEFAULT '',
    match_time      TEXT NOT NULL DEFAULT '',
    venue           TEXT NOT NULL DEFAULT '',
    match_type      TEXT NOT NULL DEFAULT '',
    gender          TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'scheduled',
    final_score     JSONB,
    quarter_scores  JSONB,
    winner          TEXT,
    player_stats    JSONB,
    live_started_at TIMESTAMPTZ,
    completed_at    TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS match_players (
    id            UUID PRIMARY KEY,
    match_id      TEXT NOT NULL,
    team          TEXT NOT NULL,
    jersey_number TEXT NOT NULL,
    player_name   TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS match_players_match_id_idx ON match_players (match_id);
`
