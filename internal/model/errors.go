package model

import "errors"

// Sentinel errors raised by the cortex engine. Handlers match these with
// errors.Is to pick a response status; the engine never retries them.
var (
	// ErrUserNotFound means the referenced account does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrMemorySpaceNotFound means a preference write was attempted before
	// any interaction established a memory space for the user.
	ErrMemorySpaceNotFound = errors.New("memory space not found")

	// ErrRateLimitExceeded means admission was denied for the current
	// window. Callers surface this as a backoff signal.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
