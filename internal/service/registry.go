package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/model"
)

// EnsureSpace returns the user's memory space ID, creating the space lazily
// on first call. Safe to call concurrently and repeatedly: exactly one space
// ever wins the attachment to the user record.
func (c *Cortex) EnsureSpace(ctx context.Context, userID string) (string, error) {
	user, err := c.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}

	if user.MemorySpaceID != "" {
		return user.MemorySpaceID, nil
	}

	space := &model.MemorySpace{
		Participants: []string{userID},
		Status:       model.SpaceStatusActive,
	}
	if err := c.store.CreateSpace(ctx, space); err != nil {
		return "", fmt.Errorf("create space: %w", err)
	}

	won, err := c.store.AttachMemorySpace(ctx, userID, space.ID)
	if err != nil {
		return "", err
	}
	if !won {
		// A concurrent call attached a space first; ours stays orphaned
		// but harmless. Return the winner.
		user, err = c.store.GetUser(ctx, userID)
		if err != nil {
			return "", err
		}
		return user.MemorySpaceID, nil
	}

	c.logger.Info("memory space created",
		zap.String("space_id", space.ID),
		zap.String("user_id", userID),
	)

	return space.ID, nil
}
