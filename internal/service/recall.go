package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/pkg/metrics"
)

const (
	defaultRecallLimit = 20
	maxRecallLimit     = 100

	// suburbScoreFloor filters out suburbs the user is lukewarm about.
	suburbScoreFloor = 30
	// suburbRecallLimit caps how many preference rows a recall returns.
	suburbRecallLimit = 10
)

// Recall returns the memories, facts, property interactions, and suburb
// preferences relevant to a new query. Candidates are recency-ordered;
// semantic ranking against the query is the external indexer's job. A user
// with no history gets four empty lists, never an error.
func (c *Cortex) Recall(ctx context.Context, identity string, req *model.RecallRequest) (*model.RecallResult, error) {
	if err := c.limiter.Admit(ctx, ratelimit.ClassRecall, identity); err != nil {
		metrics.RecordOperation("recall", "rejected")
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	if limit > maxRecallLimit {
		limit = maxRecallLimit
	}

	result := &model.RecallResult{
		Memories:             []model.MemoryRecall{},
		Facts:                []model.FactRecall{},
		PropertyInteractions: []model.PropertyInteractionRecall{},
		SuburbPreferences:    []model.SuburbPreferenceRecall{},
	}

	user, err := c.store.GetUser(ctx, req.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		metrics.RecordOperation("recall", "success")
		return result, nil
	}
	if err != nil {
		metrics.RecordOperation("recall", "error")
		return nil, err
	}
	if user.MemorySpaceID == "" {
		metrics.RecordOperation("recall", "success")
		return result, nil
	}

	spaceID := user.MemorySpaceID

	var (
		memories     []model.Memory
		facts        []model.Fact
		interactions []model.PropertyInteraction
		preferences  []model.SuburbPreference
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		memories, err = c.store.ListRecentMemories(gctx, spaceID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		facts, err = c.store.ListFacts(gctx, spaceID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		interactions, err = c.store.ListPropertyInteractions(gctx, req.UserID, limit)
		return err
	})
	g.Go(func() error {
		var err error
		preferences, err = c.store.ListSuburbPreferences(gctx, req.UserID, suburbScoreFloor, suburbRecallLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordOperation("recall", "error")
		return nil, err
	}

	memoryIDs := make([]string, 0, len(memories))
	for _, mem := range memories {
		memoryIDs = append(memoryIDs, mem.ID)
		result.Memories = append(result.Memories, model.MemoryRecall{
			Content:     mem.Content,
			ContentType: mem.ContentType,
			Source:      string(mem.Source),
			Importance:  mem.Importance,
			Tags:        mem.Tags,
			CreatedAt:   mem.CreatedAt,
		})
	}

	for _, f := range facts {
		result.Facts = append(result.Facts, model.FactRecall{
			Fact:       f.Fact,
			Subject:    f.Subject,
			Predicate:  f.Predicate,
			Object:     f.Object,
			Confidence: f.Confidence,
			Category:   f.Category,
		})
	}

	for _, pi := range interactions {
		result.PropertyInteractions = append(result.PropertyInteractions, model.PropertyInteractionRecall{
			PropertyID:      pi.PropertyID,
			InteractionType: string(pi.InteractionType),
			PropertyContext: pi.PropertyContext,
			Query:           pi.Query,
			Timestamp:       pi.Timestamp,
		})
	}

	for _, p := range preferences {
		result.SuburbPreferences = append(result.SuburbPreferences, model.SuburbPreferenceRecall{
			SuburbName:       p.SuburbName,
			State:            p.State,
			PreferenceScore:  p.PreferenceScore,
			InteractionCount: p.InteractionCount,
		})
	}

	if err := c.store.TouchMemories(ctx, memoryIDs); err != nil {
		// Access counting is best-effort; recall results are already final.
		c.logger.Warn("failed to touch memories", zap.Error(err))
	}

	metrics.RecordRecallSizes(len(result.Memories), len(result.Facts),
		len(result.PropertyInteractions), len(result.SuburbPreferences))
	metrics.RecordOperation("recall", "success")

	return result, nil
}
