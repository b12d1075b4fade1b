package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/model"
)

// CreateUser provisions a new account. The memory-space link stays empty
// until the first recorded interaction establishes one.
func (c *Cortex) CreateUser(ctx context.Context, email, name string) (*model.User, error) {
	user := &model.User{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}

	if err := c.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	c.logger.Info("user created", zap.String("user_id", user.ID))
	return user, nil
}

// GetUser retrieves an account by ID.
func (c *Cortex) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return c.store.GetUser(ctx, userID)
}
