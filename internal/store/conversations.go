package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/haus-platform/cortex/internal/model"
)

// RecordInteraction writes a conversation, its companion memory, and an
// optional property interaction in one transaction. Either everything is
// committed or nothing is: a conversation must never exist without its
// memory.
func (s *Store) RecordInteraction(ctx context.Context, conv *model.Conversation, mem *model.Memory, pi *model.PropertyInteraction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin interaction tx: %w", err)
	}
	defer tx.Rollback()

	messages, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, space_id, messages, message_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ID, conv.SpaceID, string(messages), conv.MessageCount,
		formatTime(conv.CreatedAt), formatTime(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	tags, err := encodeList(mem.Tags)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO memories (id, space_id, conversation_id, content, content_type, source,
		                       importance, tags, version, access_count, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mem.ID, mem.SpaceID, mem.ConversationID, mem.Content, mem.ContentType,
		string(mem.Source), mem.Importance, tags, mem.Version, mem.AccessCount,
		formatTime(mem.CreatedAt), formatTime(mem.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert memory: %w", err)
	}

	if pi != nil {
		propertyContext := "{}"
		if pi.PropertyContext != nil {
			b, err := json.Marshal(pi.PropertyContext)
			if err != nil {
				return fmt.Errorf("encode property context: %w", err)
			}
			propertyContext = string(b)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO property_interactions (id, user_id, space_id, property_id,
			                                    interaction_type, property_context, query, version, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pi.ID, pi.UserID, pi.SpaceID, pi.PropertyID, string(pi.InteractionType),
			propertyContext, pi.Query, pi.Version, formatTime(pi.Timestamp))
		if err != nil {
			return fmt.Errorf("insert property interaction: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit interaction tx: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, space_id, messages, message_count, created_at, updated_at
		 FROM conversations WHERE id = ?`, conversationID)

	var conv model.Conversation
	var messages, createdAt, updatedAt string
	err := row.Scan(&conv.ID, &conv.SpaceID, &messages, &conv.MessageCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation %s not found", conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	if conv.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if conv.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &conv, nil
}

// AppendConversationTurns appends later turns of the same exchange to an
// existing conversation. Recorded turns are never rewritten.
func (s *Store) AppendConversationTurns(ctx context.Context, conversationID string, turns []model.ConversationMessage) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer tx.Rollback()

	var messages string
	err = tx.QueryRowContext(ctx,
		`SELECT messages FROM conversations WHERE id = ?`, conversationID).Scan(&messages)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("conversation %s not found", conversationID)
	}
	if err != nil {
		return fmt.Errorf("get conversation: %w", err)
	}

	var existing []model.ConversationMessage
	if err := json.Unmarshal([]byte(messages), &existing); err != nil {
		return fmt.Errorf("decode messages: %w", err)
	}
	existing = append(existing, turns...)

	updated, err := json.Marshal(existing)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	last := turns[len(turns)-1].Timestamp
	_, err = tx.ExecContext(ctx,
		`UPDATE conversations SET messages = ?, message_count = ?, updated_at = ? WHERE id = ?`,
		string(updated), len(existing), formatTime(last), conversationID)
	if err != nil {
		return fmt.Errorf("update conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append tx: %w", err)
	}
	return nil
}
