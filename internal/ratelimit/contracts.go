package ratelimit

import (
	"context"
	"errors"
)

// ErrNoCapacity is returned by Wait when no bucket can be allocated for a key.
var ErrNoCapacity = errors.New("rate limit: bucket capacity exhausted")

// Limiter is a non-blocking per-key rate limiter.
type Limiter interface {
	Allow(key string) bool
}

// Waiter blocks until a key may proceed.
type Waiter interface {
	Wait(ctx context.Context, key string) error
}
