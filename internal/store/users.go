package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haus-platform/cortex/internal/model"
)

// CreateUser inserts a new account. The memory-space link stays empty until
// the first recorded interaction.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, memory_space_id, created_at)
		 VALUES (?, ?, ?, NULLIF(?, ''), ?)`,
		u.ID, u.Email, u.Name, u.MemorySpaceID, formatTime(u.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser retrieves an account by ID. Returns model.ErrUserNotFound when the
// account does not exist.
func (s *Store) GetUser(ctx context.Context, userID string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(email, ''), COALESCE(name, ''), COALESCE(memory_space_id, ''), created_at
		 FROM users WHERE id = ?`, userID)

	var u model.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.MemorySpaceID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// AttachMemorySpace links a space to a user, but only if no space is linked
// yet. Returns true when this call won the attachment; false means another
// space was already attached (the caller should re-read the user to learn
// the winning space ID).
func (s *Store) AttachMemorySpace(ctx context.Context, userID, spaceID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET memory_space_id = ? WHERE id = ? AND memory_space_id IS NULL`,
		spaceID, userID)
	if err != nil {
		return false, fmt.Errorf("attach memory space: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach memory space: %w", err)
	}
	return n == 1, nil
}
