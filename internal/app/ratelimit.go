package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/http/middleware/ratelimit"
	"onfleet-workers-go/internal/logx"
	limiter "onfleet-workers-go/internal/ratelimit"
)

func newRateLimiter(cfg *config.Config, clock limiter.Clock) limiter.Limiter {
	rl := cfg.RateLimit
	if !rl.Enabled {
		return limiter.NopLimiter{}
	}
	return limiter.NewTokenBucketLimiter(clock, limiter.Config{
		Rate:       rl.Rate,
		Burst:      rl.Burst,
		TTL:        rl.TTL,
		MaxBuckets: rl.MaxBuckets,
	})
}

func newRateLimitClock() limiter.Clock {
	return limiter.RealClock{}
}

type rateLimitIn struct {
	dig.In
	Logger  logx.Logger
	Counter prometheus.Counter `name:"rate_limit_exceeded_total"`
	Limiter limiter.Limiter
}

func newRateLimitMiddleware(in rateLimitIn) *ratelimit.Middleware {
	return ratelimit.New(in.Logger, in.Counter, in.Limiter)
}
