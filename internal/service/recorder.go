package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/pkg/metrics"
)

// Remember records one voice/chat exchange: a two-turn conversation, its
// companion memory, and (when a property was discussed with context) an
// immutable property interaction — all within a single transaction, so a
// failed call leaves nothing behind. identity keys the rate-limit bucket
// and is the user ID for authenticated callers or a session token for
// anonymous ones.
func (c *Cortex) Remember(ctx context.Context, identity string, req *model.RememberRequest) (*model.RememberResult, error) {
	if err := c.limiter.Admit(ctx, ratelimit.ClassMemory, identity); err != nil {
		metrics.RecordOperation("remember", "rejected")
		return nil, err
	}

	spaceID, err := c.EnsureSpace(ctx, req.UserID)
	if err != nil {
		metrics.RecordOperation("remember", "error")
		return nil, err
	}

	now := time.Now()

	conv := &model.Conversation{
		ID:      uuid.Must(uuid.NewV7()).String(),
		SpaceID: spaceID,
		Messages: []model.ConversationMessage{
			{Role: model.RoleUser, Content: req.UserQuery, Timestamp: now},
			{Role: model.RoleAssistant, Content: req.AgentResponse, Timestamp: now.Add(time.Millisecond)},
		},
		MessageCount: 2,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tags := []string{model.TagVoiceSearch}
	if req.PropertyID != "" {
		tags = append(tags, model.TagProperty)
	}

	mem := &model.Memory{
		ID:             uuid.Must(uuid.NewV7()).String(),
		SpaceID:        spaceID,
		ConversationID: conv.ID,
		Content:        fmt.Sprintf("User: %s\nAssistant: %s", req.UserQuery, req.AgentResponse),
		ContentType:    "text",
		Source:         model.SourceVoice,
		Importance:     model.DefaultImportance,
		Tags:           tags,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var pi *model.PropertyInteraction
	if req.PropertyID != "" && req.PropertyContext != nil {
		pi = &model.PropertyInteraction{
			ID:              uuid.Must(uuid.NewV7()).String(),
			UserID:          req.UserID,
			SpaceID:         spaceID,
			PropertyID:      req.PropertyID,
			InteractionType: model.InteractionVoiceQuery,
			PropertyContext: req.PropertyContext,
			Query:           req.UserQuery,
			Version:         1,
			Timestamp:       now,
		}
	}

	if err := c.store.RecordInteraction(ctx, conv, mem, pi); err != nil {
		metrics.RecordOperation("remember", "error")
		return nil, fmt.Errorf("record interaction: %w", err)
	}

	c.notifyMemory(ctx, mem)

	metrics.MemoriesTotal.Inc()
	metrics.RecordOperation("remember", "success")

	c.logger.Info("interaction recorded",
		zap.String("conversation_id", conv.ID),
		zap.String("memory_id", mem.ID),
		zap.String("space_id", spaceID),
		zap.Bool("property", pi != nil),
	)

	return &model.RememberResult{
		ConversationID: conv.ID,
		MemoryID:       mem.ID,
		SpaceID:        spaceID,
	}, nil
}

func (c *Cortex) notifyMemory(ctx context.Context, mem *model.Memory) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.PublishMemoryCreated(ctx, mem); err != nil {
		metrics.IndexerEventsTotal.WithLabelValues("memory", "error").Inc()
		c.logger.Warn("failed to publish memory event",
			zap.String("memory_id", mem.ID), zap.Error(err))
		return
	}
	metrics.IndexerEventsTotal.WithLabelValues("memory", "success").Inc()
}
