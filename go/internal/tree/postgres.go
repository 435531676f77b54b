package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NotifyChannel is the Postgres channel carrying changed paths.
const NotifyChannel = "tree_changes"

const schema = `
CREATE TABLE IF NOT EXISTS tree_nodes (
    path       TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres stores the tree as one row per leaf path. Writes run in a single
// transaction and announce the changed paths with pg_notify, which the
// Listener turns back into subscriber wake-ups on every process.
type Postgres struct {
	pool *pgxpool.Pool
	hub  *hub
}

// NewPostgres wraps pool. Call Listen (or attach a Listener) to receive
// changes made by other processes.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	p := &Postgres{pool: pool}
	p.hub = newHub(p.Get)
	return p
}

var _ Tree = (*Postgres)(nil)

// EnsureSchema creates the tree_nodes table if needed.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tree schema: %w", err)
	}
	return nil
}

// Subscribe implements Reader.
func (p *Postgres) Subscribe(path string, fn func(value any)) func() {
	return p.hub.subscribe(path, fn)
}

// Changed wakes local subscribers for paths changed elsewhere.
func (p *Postgres) Changed(paths ...string) {
	p.hub.notify(paths...)
}

// Get implements Reader.
func (p *Postgres) Get(ctx context.Context, path string) (any, error) {
	if err := Validate(path); err != nil {
		return nil, err
	}
	path = Clean(path)

	var (
		rows pgx.Rows
		err  error
	)
	if path == "" {
		rows, err = p.pool.Query(ctx, `SELECT path, value FROM tree_nodes`)
	} else {
		rows, err = p.pool.Query(ctx,
			`SELECT path, value FROM tree_nodes WHERE path = $1 OR starts_with(path, $1 || '/')`,
			path,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tree path %q: %w", path, err)
	}
	defer rows.Close()

	leaves := make(map[string]any)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan tree node: %w", err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode tree node %q: %w", key, err)
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(key, path), "/")
		leaves[rel] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tree path %q: %w", path, err)
	}
	return Inflate(leaves), nil
}

// Set implements Tree.
func (p *Postgres) Set(ctx context.Context, path string, value any) error {
	return p.Update(ctx, map[string]any{path: value})
}

// Update implements Tree.
func (p *Postgres) Update(ctx context.Context, updates map[string]any) error {
	normalized := make(map[string]any, len(updates))
	for path, v := range updates {
		if err := Validate(path); err != nil {
			return err
		}
		nv, err := Normalize(v)
		if err != nil {
			return err
		}
		normalized[Clean(path)] = nv
	}

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		for _, path := range sortedPaths(normalized) {
			if err := writePath(ctx, tx, path, normalized[path]); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, path); err != nil {
				return fmt.Errorf("failed to notify tree change: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}

	changed := make([]string, 0, len(normalized))
	for path := range normalized {
		changed = append(changed, path)
	}
	p.hub.notify(changed...)
	return nil
}

func writePath(ctx context.Context, tx pgx.Tx, path string, value any) error {
	if path == "" {
		if _, err := tx.Exec(ctx, `DELETE FROM tree_nodes`); err != nil {
			return fmt.Errorf("failed to clear tree: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`DELETE FROM tree_nodes WHERE path = $1 OR starts_with(path, $1 || '/') OR path = ANY($2)`,
			path, Ancestors(path),
		); err != nil {
			return fmt.Errorf("failed to clear tree path %q: %w", path, err)
		}
	}

	leaves := make(map[string]any)
	Flatten(path, value, leaves)
	for key, leaf := range leaves {
		data, err := json.Marshal(leaf)
		if err != nil {
			return fmt.Errorf("failed to encode tree node %q: %w", key, err)
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO tree_nodes (path, value, updated_at)
            VALUES ($1, $2::jsonb, now())
            ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
        `, key, string(data)); err != nil {
			return fmt.Errorf("failed to write tree node %q: %w", key, err)
		}
	}
	return nil
}
