package ratelimit

import "context"

// NopLimiter is a no-op limiter
type NopLimiter struct{}

// Allow always returns true
func (NopLimiter) Allow(string) bool { return true }

// Wait never blocks
func (NopLimiter) Wait(ctx context.Context, _ string) error { return ctx.Err() }

var (
	_ Limiter = NopLimiter{}
	_ Waiter  = NopLimiter{}
)
