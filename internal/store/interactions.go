package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/haus-platform/cortex/internal/model"
)

func decodeContext(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" || raw.String == "{}" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, fmt.Errorf("decode property context: %w", err)
	}
	return m, nil
}

// ListPropertyInteractions returns the most recent property interaction
// events for a user. Events are append-only and come back newest first.
func (s *Store) ListPropertyInteractions(ctx context.Context, userID string, limit int) ([]model.PropertyInteraction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, space_id, property_id, interaction_type,
		        property_context, COALESCE(query, ''), version, created_at
		 FROM property_interactions
		 WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list property interactions: %w", err)
	}
	defer rows.Close()

	var interactions []model.PropertyInteraction
	for rows.Next() {
		var pi model.PropertyInteraction
		var interactionType, createdAt string
		var propertyContext sql.NullString

		err := rows.Scan(&pi.ID, &pi.UserID, &pi.SpaceID, &pi.PropertyID,
			&interactionType, &propertyContext, &pi.Query, &pi.Version, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan property interaction: %w", err)
		}

		pi.InteractionType = model.InteractionType(interactionType)
		if pi.PropertyContext, err = decodeContext(propertyContext); err != nil {
			return nil, err
		}
		if pi.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		interactions = append(interactions, pi)
	}
	return interactions, rows.Err()
}
