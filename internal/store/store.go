// Package store is the Postgres persistence layer: conversation records,
// dialogue history, the registry lookup cache and its audit trail.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// InitSchema creates the tables if they do not exist yet. Idempotent, run
// at startup.
func (s *Store) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			conversation_id text PRIMARY KEY,
			data            jsonb NOT NULL,
			updated_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			id              bigserial PRIMARY KEY,
			conversation_id text NOT NULL,
			role            text NOT NULL,
			text            text NOT NULL,
			created_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS history_conversation_idx
			ON history (conversation_id, id)`,
		`CREATE TABLE IF NOT EXISTS lookup_cache (
			key        text PRIMARY KEY,
			value      jsonb NOT NULL,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS lookup_audit (
			id              bigserial PRIMARY KEY,
			conversation_id text NOT NULL,
			kind            text NOT NULL,
			key             text NOT NULL,
			source          text NOT NULL,
			created_at      timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS conversation_events (
			id              bigserial PRIMARY KEY,
			conversation_id text NOT NULL,
			kind            text NOT NULL,
			detail          jsonb,
			created_at      timestamptz NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
