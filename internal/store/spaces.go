package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haus-platform/cortex/internal/model"
)

// CreateSpace inserts a new memory space.
func (s *Store) CreateSpace(ctx context.Context, space *model.MemorySpace) error {
	if space.ID == "" {
		space.ID = newID()
	}
	now := time.Now()
	if space.CreatedAt.IsZero() {
		space.CreatedAt = now
	}
	space.UpdatedAt = now
	if space.Status == "" {
		space.Status = model.SpaceStatusActive
	}

	participants, err := encodeList(space.Participants)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_spaces (id, participants, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		space.ID, participants, string(space.Status),
		formatTime(space.CreatedAt), formatTime(space.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert memory space: %w", err)
	}
	return nil
}

// GetSpace retrieves a memory space by ID. Returns model.ErrMemorySpaceNotFound
// when no such space exists.
func (s *Store) GetSpace(ctx context.Context, spaceID string) (*model.MemorySpace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, participants, status, created_at, updated_at
		 FROM memory_spaces WHERE id = ?`, spaceID)

	var space model.MemorySpace
	var participants sql.NullString
	var status, createdAt, updatedAt string
	err := row.Scan(&space.ID, &participants, &status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMemorySpaceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get memory space: %w", err)
	}

	space.Status = model.SpaceStatus(status)
	if space.Participants, err = decodeList(participants); err != nil {
		return nil, err
	}
	if space.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if space.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &space, nil
}
