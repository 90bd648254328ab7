package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewGatewayRetriesTotal returns a Prometheus counter for the number of retry attempts performed by gateways
func NewGatewayRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gateway_retries_total",
		Help: "Total number of retry attempts performed by gateways",
	})
}

// NewGatewayRequestDuration returns a histogram of outbound platform calls labelled by operation and HTTP status
func NewGatewayRequestDuration() *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of requests to the workers API",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
}

// NewBreakerStateChangesTotal counts circuit breaker transitions by target state
func NewBreakerStateChangesTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"to"})
}

// NewDispatchedEventsTotal counts processed task assignment events by outcome
func NewDispatchedEventsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatcher_events_total",
		Help: "Total number of task assignment events by outcome",
	}, []string{"outcome"})
}
