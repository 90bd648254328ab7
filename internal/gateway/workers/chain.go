package workers

import (
	"github.com/prometheus/client_golang/prometheus"

	"onfleet-workers-go/internal/ratelimit"
)

// ClientConfig describes a complete client: transport, throttling, retries and circuit breaker.
type ClientConfig struct {
	Options
	// Rate and Burst build a token bucket when Options.Limiter is nil. Rate 0 disables it.
	Rate  float64
	Burst int

	Retry          RetryConfig
	Breaker        BreakerConfig
	Retries        prometheus.Counter
	BreakerChanges *prometheus.CounterVec
}

// New builds the production client stack. A retried sequence counts once
// towards the breaker, so the breaker wraps the retrying gateway.
func New(cfg ClientConfig) (API, error) {
	if cfg.Limiter == nil && cfg.Rate > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		cfg.Limiter = ratelimit.NewTokenBucketLimiter(ratelimit.RealClock{}, ratelimit.Config{
			Rate:  cfg.Rate,
			Burst: burst,
		})
	}
	httpGW, err := NewHTTPGateway(cfg.Options)
	if err != nil {
		return nil, err
	}

	var retries counter
	if cfg.Retries != nil {
		retries = cfg.Retries
	}
	retrying := NewRetryingGateway(httpGW, cfg.Logger, retries, cfg.Retry)
	return NewBreakerGateway(retrying, cfg.Logger, cfg.BreakerChanges, cfg.Breaker), nil
}
