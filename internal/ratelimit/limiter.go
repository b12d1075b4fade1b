// Package ratelimit provides fixed-window admission control per identity
// and operation class, with bucket state in the shared transactional store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/haus-platform/cortex/internal/model"
	"github.com/haus-platform/cortex/pkg/metrics"
)

// Class groups operations under one admission ceiling.
type Class string

const (
	// ClassMemory covers the write path: remember and store-preference.
	ClassMemory Class = "memory"
	// ClassRecall covers the read path, with a higher ceiling.
	ClassRecall Class = "recall"
	// ClassVoiceToken covers voice session token minting.
	ClassVoiceToken Class = "voice_token"
)

// ClassConfig is the ceiling and window length for one operation class.
type ClassConfig struct {
	Ceiling int
	Window  time.Duration
}

// Config maps operation classes to their limits.
type Config map[Class]ClassConfig

// DefaultConfig returns the default per-class limits.
func DefaultConfig() Config {
	return Config{
		ClassMemory:     {Ceiling: 60, Window: time.Minute},
		ClassRecall:     {Ceiling: 120, Window: time.Minute},
		ClassVoiceToken: {Ceiling: 10, Window: time.Minute},
	}
}

// BucketStore is the persistence the limiter needs: an atomic
// increment-or-reset of one bucket.
type BucketStore interface {
	AdmitBucket(ctx context.Context, key string, ceiling int, window time.Duration, now time.Time) (bool, error)
}

// Limiter decides admission for (identity, class) pairs.
//
// Fixed windows are used over sliding windows for simplicity; the accepted
// cost is a burst of up to twice the ceiling across a window boundary.
type Limiter struct {
	store BucketStore
	cfg   Config
	now   func() time.Time
}

// NewLimiter creates a limiter over the given bucket store.
func NewLimiter(store BucketStore, cfg Config) *Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Limiter{store: store, cfg: cfg, now: time.Now}
}

// Key builds the bucket key for an operation class and identity.
func Key(class Class, identity string) string {
	return string(class) + ":" + identity
}

// Admit checks whether one more operation of the given class is allowed for
// the identity. Returns model.ErrRateLimitExceeded on rejection; the caller
// must abort before any state mutation.
func (l *Limiter) Admit(ctx context.Context, class Class, identity string) error {
	cc, ok := l.cfg[class]
	if !ok {
		return fmt.Errorf("unknown operation class %q", class)
	}

	allowed, err := l.store.AdmitBucket(ctx, Key(class, identity), cc.Ceiling, cc.Window, l.now())
	if err != nil {
		return fmt.Errorf("admit %s: %w", class, err)
	}

	if !allowed {
		metrics.RateLimitVerdicts.WithLabelValues(string(class), "reject").Inc()
		return model.ErrRateLimitExceeded
	}
	metrics.RateLimitVerdicts.WithLabelValues(string(class), "allow").Inc()
	return nil
}
