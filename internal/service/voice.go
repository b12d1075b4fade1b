package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/haus-platform/cortex/internal/ratelimit"
	"github.com/haus-platform/cortex/pkg/metrics"
)

// MintVoiceToken issues an opaque session token for a voice session. The
// token becomes the rate-limit identity of an unauthenticated caller, so
// concurrent anonymous sessions never share a bucket. Minting itself is
// gated by the much smaller voice-token class.
func (c *Cortex) MintVoiceToken(ctx context.Context, identity string) (string, error) {
	if err := c.limiter.Admit(ctx, ratelimit.ClassVoiceToken, identity); err != nil {
		metrics.RecordOperation("voice_token", "rejected")
		return "", err
	}

	metrics.RecordOperation("voice_token", "success")
	return uuid.New().String(), nil
}
