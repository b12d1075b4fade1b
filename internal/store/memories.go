package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haus-platform/cortex/internal/model"
)

func scanMemory(row interface{ Scan(...any) error }) (*model.Memory, error) {
	var mem model.Memory
	var conversationID, source, createdAt, updatedAt string
	var tags sql.NullString

	err := row.Scan(&mem.ID, &mem.SpaceID, &conversationID, &mem.Content,
		&mem.ContentType, &source, &mem.Importance, &tags, &mem.Version,
		&mem.AccessCount, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	mem.ConversationID = conversationID
	mem.Source = model.MemorySource(source)
	if mem.Tags, err = decodeList(tags); err != nil {
		return nil, err
	}
	if mem.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if mem.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &mem, nil
}

const memoryColumns = `id, space_id, COALESCE(conversation_id, ''), content, content_type, source,
	importance, tags, version, access_count, created_at, updated_at`

// GetMemory retrieves a memory by ID.
func (s *Store) GetMemory(ctx context.Context, memoryID string) (*model.Memory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+memoryColumns+` FROM memories WHERE id = ?`, memoryID)

	mem, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("memory %s not found", memoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return mem, nil
}

// ListRecentMemories returns the most recent memories for a space,
// recency-ordered.
func (s *Store) ListRecentMemories(ctx context.Context, spaceID string, limit int) ([]model.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+memoryColumns+` FROM memories
		 WHERE space_id = ? ORDER BY created_at DESC LIMIT ?`, spaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}
	defer rows.Close()

	var memories []model.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		memories = append(memories, *mem)
	}
	return memories, rows.Err()
}

// TouchMemories increments the access counter of the given memories after a
// recall returned them.
func (s *Store) TouchMemories(ctx context.Context, memoryIDs []string) error {
	if len(memoryIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(memoryIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(memoryIDs)+1)
	args = append(args, formatTime(time.Now()))
	for _, id := range memoryIDs {
		args = append(args, id)
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, updated_at = ?
		 WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("touch memories: %w", err)
	}
	return nil
}

// SetMemoryImportance revises the importance score of a memory and bumps its
// version counter.
func (s *Store) SetMemoryImportance(ctx context.Context, memoryID string, importance int) error {
	if importance < 0 {
		importance = 0
	}
	if importance > 100 {
		importance = 100
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE memories SET importance = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		importance, formatTime(time.Now()), memoryID)
	if err != nil {
		return fmt.Errorf("set importance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set importance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("memory %s not found", memoryID)
	}
	return nil
}
