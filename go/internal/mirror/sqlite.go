// Package mirror keeps a local copy of in-progress sessions and saved
// matches so a scorer can resume after a restart. It is advisory: the
// remote tree wins whenever both have a session.
package mirror

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/courtside/livescore/go/internal/models"
)

// SQLite implements the mirror on a local sqlite file.
type SQLite struct {
	db *sql.DB
}

// Open opens (creating if needed) the mirror database and runs migrations.
func Open(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	m := &SQLite{db: db}
	if err := m.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run mirror migrations: %w", err)
	}
	return m, nil
}

func (m *SQLite) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_key TEXT PRIMARY KEY,
			match_id TEXT NOT NULL DEFAULT '',
			stage TEXT NOT NULL,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_match_id ON sessions(match_id)`,
		`CREATE TABLE IF NOT EXISTS past_matches (
			id TEXT PRIMARY KEY,
			match_id TEXT NOT NULL DEFAULT '',
			data TEXT NOT NULL,
			saved_at INTEGER NOT NULL
		)`,
	}
	for _, q := range migrations {
		if _, err := m.db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (m *SQLite) Close() error {
	return m.db.Close()
}

// SaveSession upserts the session stored under key.
func (m *SQLite) SaveSession(ctx context.Context, key string, s *models.MatchSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, match_id, stage, data, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_key) DO UPDATE SET
		 	match_id = excluded.match_id,
		 	stage = excluded.stage,
		 	data = excluded.data,
		 	updated_at = excluded.updated_at`,
		key, s.MatchID, string(s.MatchStage), string(data), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", key, err)
	}
	return nil
}

// LoadSession returns the session under key, or nil if there is none.
func (m *SQLite) LoadSession(ctx context.Context, key string) (*models.MatchSession, error) {
	var data string
	err := m.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE session_key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", key, err)
	}
	return decodeSession(data)
}

// LoadSessionByMatchID finds the most recent session for a scheduled match.
func (m *SQLite) LoadSessionByMatchID(ctx context.Context, matchID string) (*models.MatchSession, error) {
	var data string
	err := m.db.QueryRowContext(ctx,
		`SELECT data FROM sessions WHERE match_id = ? ORDER BY updated_at DESC LIMIT 1`, matchID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session for match %s: %w", matchID, err)
	}
	return decodeSession(data)
}

// DeleteSession removes the session under key.
func (m *SQLite) DeleteSession(ctx context.Context, key string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", key, err)
	}
	return nil
}

// SavePastMatch keeps a local backup of a saved match.
func (m *SQLite) SavePastMatch(ctx context.Context, pm models.PastMatch) error {
	data, err := json.Marshal(pm)
	if err != nil {
		return fmt.Errorf("failed to encode past match: %w", err)
	}
	_, err = m.db.ExecContext(ctx,
		`INSERT INTO past_matches (id, match_id, data, saved_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 	match_id = excluded.match_id,
		 	data = excluded.data,
		 	saved_at = excluded.saved_at`,
		pm.ID, pm.MatchID, string(data), pm.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save past match %s: %w", pm.ID, err)
	}
	return nil
}

// ListPastMatches returns saved matches, newest first.
func (m *SQLite) ListPastMatches(ctx context.Context) ([]models.PastMatch, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT data FROM past_matches ORDER BY saved_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list past matches: %w", err)
	}
	defer rows.Close()

	var out []models.PastMatch
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var pm models.PastMatch
		if err := json.Unmarshal([]byte(data), &pm); err != nil {
			return nil, fmt.Errorf("failed to decode past match: %w", err)
		}
		out = append(out, pm)
	}
	return out, rows.Err()
}

// DeletePastMatch removes a saved match backup.
func (m *SQLite) DeletePastMatch(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM past_matches WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete past match %s: %w", id, err)
	}
	return nil
}

func decodeSession(data string) (*models.MatchSession, error) {
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode mirrored session: %w", err)
	}
	return models.DecodeSession(raw), nil
}
