package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// perConversationEventCap bounds the event trail kept per conversation;
// older rows are trimmed on insert.
const perConversationEventCap = 1000

// TrackEvent appends a conversation event (objection handled, lookup done,
// reply sent) for offline analysis. Failures here must never block the
// message pipeline, so callers log and drop the error.
func (s *Store) TrackEvent(ctx context.Context, conversationID, kind string, detail map[string]any) error {
	var raw []byte
	if detail != nil {
		var err error
		raw, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("encode event detail: %w", err)
		}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversation_events (conversation_id, kind, detail)
		VALUES ($1, $2, $3)`,
		conversationID, kind, raw,
	)
	if err != nil {
		return fmt.Errorf("track event: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		DELETE FROM conversation_events
		WHERE conversation_id = $1 AND id NOT IN (
			SELECT id FROM conversation_events
			WHERE conversation_id = $1
			ORDER BY id DESC LIMIT $2
		)`,
		conversationID, perConversationEventCap,
	)
	if err != nil {
		return fmt.Errorf("trim events: %w", err)
	}
	return nil
}
