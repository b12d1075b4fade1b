package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/internal/store"
	"github.com/haus-platform/cortex/pkg/metrics"
)

// StorePreference records an extracted user preference. A fact row is always
// appended as the evidence trail; structured suburb metadata additionally
// merges into the compacted suburb-preference aggregate that recall ranks.
//
// Unlike Remember this does not lazily create a memory space: a preference
// can only follow an interaction that already established one, so a missing
// space is ErrMemorySpaceNotFound.
func (c *Cortex) StorePreference(ctx context.Context, identity string, req *model.StorePreferenceRequest) (string, error) {
	if err := c.limiter.Admit(ctx, ratelimit.ClassMemory, identity); err != nil {
		metrics.RecordOperation("store_preference", "rejected")
		return "", err
	}

	user, err := c.store.GetUser(ctx, req.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		metrics.RecordOperation("store_preference", "error")
		return "", model.ErrMemorySpaceNotFound
	}
	if err != nil {
		metrics.RecordOperation("store_preference", "error")
		return "", err
	}
	if user.MemorySpaceID == "" {
		metrics.RecordOperation("store_preference", "error")
		return "", model.ErrMemorySpaceNotFound
	}

	meta, err := model.DecodePreferenceMetadata(req.Category, req.Metadata)
	if err != nil {
		metrics.RecordOperation("store_preference", "error")
		return "", err
	}

	predicate := model.PredicateDislikes
	if req.Confidence > 50 {
		predicate = model.PredicatePrefers
	}

	fact := &model.Fact{
		ID:         uuid.Must(uuid.NewV7()).String(),
		SpaceID:    user.MemorySpaceID,
		Fact:       fmt.Sprintf("User %s %s", predicate, req.Preference),
		Subject:    req.UserID,
		Predicate:  predicate,
		Object:     req.Preference,
		Confidence: req.Confidence,
		Category:   req.Category,
		Tags:       []string{"preference", req.Category},
		CreatedAt:  time.Now(),
	}

	var mention *store.SuburbMention
	if suburb, ok := meta.(model.SuburbMetadata); ok {
		mention = &store.SuburbMention{
			UserID:     req.UserID,
			SuburbName: suburb.SuburbName,
			State:      suburb.State,
			Confidence: req.Confidence,
			Reason:     suburb.Reason,
			Query:      suburb.MentionedInQuery,
		}
	}

	if err := c.store.SavePreference(ctx, fact, mention); err != nil {
		metrics.RecordOperation("store_preference", "error")
		return "", err
	}

	c.notifyFact(ctx, fact)

	metrics.FactsTotal.Inc()
	metrics.RecordOperation("store_preference", "success")

	c.logger.Info("preference stored",
		zap.String("fact_id", fact.ID),
		zap.String("user_id", req.UserID),
		zap.String("category", req.Category),
		zap.Bool("suburb_merge", mention != nil),
	)

	return fact.ID, nil
}

func (c *Cortex) notifyFact(ctx context.Context, fact *model.Fact) {
	if c.notifier == nil {
		return
	}
	if err := c.notifier.PublishFactCreated(ctx, fact); err != nil {
		metrics.IndexerEventsTotal.WithLabelValues("fact", "error").Inc()
		c.logger.Warn("failed to publish fact event",
			zap.String("fact_id", fact.ID), zap.Error(err))
		return
	}
	metrics.IndexerEventsTotal.WithLabelValues("fact", "success").Inc()
}
