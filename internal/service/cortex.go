// Package service provides the business logic of the cortex memory engine.
package service

import (
	"context"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/internal/store"
	"github.com/haus-platform/cortex/pkg/logger"
)

// Notifier announces memory and fact writes to the external semantic
// indexer. Notification is best-effort: a failed publish never fails the
// write that triggered it.
type Notifier interface {
	PublishMemoryCreated(ctx context.Context, mem *model.Memory) error
	PublishFactCreated(ctx context.Context, fact *model.Fact) error
}

// Cortex implements the four engine operations: ensure-memory-space,
// remember, store-preference, and recall. Every operation passes the rate
// limiter before touching storage.
type Cortex struct {
	store    *store.Store
	limiter  *ratelimit.Limiter
	notifier Notifier
	logger   *logger.Logger
}

// New creates the cortex service. notifier may be nil when no indexer is
// attached.
func New(st *store.Store, limiter *ratelimit.Limiter, notifier Notifier, log *logger.Logger) *Cortex {
	return &Cortex{
		store:    st,
		limiter:  limiter,
		notifier: notifier,
		logger:   log,
	}
}
