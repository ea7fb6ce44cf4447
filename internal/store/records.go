package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/valentimdigital/IADESPEDIDA/internal/record"
)

// GetRecord loads the record for a conversation. A conversation without a
// stored record yields an empty record, not an error.
func (s *Store) GetRecord(ctx context.Context, conversationID string) (record.Record, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM records WHERE conversation_id = $1`, conversationID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return record.Record{}, nil
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("get record %s: %w", conversationID, err)
	}

	var rec record.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record.Record{}, fmt.Errorf("decode record %s: %w", conversationID, err)
	}
	return rec, nil
}

// SaveRecord upserts the full record for a conversation.
func (s *Store) SaveRecord(ctx context.Context, conversationID string, rec record.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", conversationID, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO records (conversation_id, data, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (conversation_id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		conversationID, raw,
	)
	if err != nil {
		return fmt.Errorf("save record %s: %w", conversationID, err)
	}
	return nil
}

// History returns the most recent turns of a conversation in chronological
// order, at most limit entries.
func (s *Store) History(ctx context.Context, conversationID string, limit int) ([]record.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT role, text FROM (
			SELECT id, role, text FROM history
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent ORDER BY id ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", conversationID, err)
	}
	defer rows.Close()

	var turns []record.Turn
	for rows.Next() {
		var t record.Turn
		if err := rows.Scan(&t.Role, &t.Text); err != nil {
			return nil, fmt.Errorf("scan history %s: %w", conversationID, err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// AppendHistory appends turns to a conversation in order.
func (s *Store) AppendHistory(ctx context.Context, conversationID string, turns ...record.Turn) error {
	for _, t := range turns {
		if _, err := s.pool.Exec(ctx,
			`INSERT INTO history (conversation_id, role, text) VALUES ($1, $2, $3)`,
			conversationID, t.Role, t.Text,
		); err != nil {
			return fmt.Errorf("append history %s: %w", conversationID, err)
		}
	}
	return nil
}

// HistoryLen returns the number of stored turns for a conversation.
func (s *Store) HistoryLen(ctx context.Context, conversationID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM history WHERE conversation_id = $1`, conversationID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count history %s: %w", conversationID, err)
	}
	return n, nil
}
