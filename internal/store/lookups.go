package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LookupCache adapts the lookup_cache table to the cache.KV interface.
type LookupCache struct {
	pool *pgxpool.Pool
}

// LookupCache returns the KV view over the lookup_cache table.
func (s *Store) LookupCache() *LookupCache {
	return &LookupCache{pool: s.pool}
}

func (c *LookupCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx,
		`SELECT value FROM lookup_cache WHERE key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache get %s: %w", key, err)
	}
	return raw, true, nil
}

func (c *LookupCache) Put(ctx context.Context, key string, value []byte) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO lookup_cache (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("lookup cache put %s: %w", key, err)
	}
	return nil
}

// AppendLookupAudit records one registry lookup and where it was served
// from. Satisfies resolver.AuditSink.
func (s *Store) AppendLookupAudit(ctx context.Context, conversationID, kind, key, source string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lookup_audit (conversation_id, kind, key, source)
		VALUES ($1, $2, $3, $4)`,
		conversationID, kind, key, source,
	)
	if err != nil {
		return fmt.Errorf("append lookup audit: %w", err)
	}
	return nil
}

// AuditEntry is one row of the lookup audit trail.
type AuditEntry struct {
	ConversationID string    `json:"conversation_id"`
	Kind           string    `json:"kind"`
	Key            string    `json:"key"`
	Source         string    `json:"source"`
	CreatedAt      time.Time `json:"created_at"`
}

// RecentLookupAudit returns the newest audit entries, most recent first.
func (s *Store) RecentLookupAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conversation_id, kind, key, source, created_at
		FROM lookup_audit ORDER BY id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load lookup audit: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ConversationID, &e.Kind, &e.Key, &e.Source, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lookup audit: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
