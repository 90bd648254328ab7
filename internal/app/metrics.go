package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter       `name:"rate_limit_exceeded_total"`
	GatewayRetriesTotal    prometheus.Counter       `name:"gateway_retries_total"`
	GatewayDurations       *prometheus.HistogramVec `name:"gateway_request_duration_seconds"`
	BreakerStateChanges    *prometheus.CounterVec   `name:"gateway_breaker_state_changes_total"`
	DispatchedEvents       *prometheus.CounterVec   `name:"dispatcher_events_total"`
}

// register adds c to the default registry or returns the collector already registered under the same name.
func register[T prometheus.Collector](name string, c T) (T, error) {
	err := prometheus.DefaultRegisterer.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("register %s: %w", name, err)
}

func provideMetrics() (metricsOut, error) {
	var (
		out metricsOut
		err error
	)
	if out.RateLimitExceededTotal, err = register("rate_limit_exceeded_total", metrics.NewRateLimitExceededTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.GatewayRetriesTotal, err = register("gateway_retries_total", metrics.NewGatewayRetriesTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.GatewayDurations, err = register("gateway_request_duration_seconds", metrics.NewGatewayRequestDuration()); err != nil {
		return metricsOut{}, err
	}
	if out.BreakerStateChanges, err = register("gateway_breaker_state_changes_total", metrics.NewBreakerStateChangesTotal()); err != nil {
		return metricsOut{}, err
	}
	if out.DispatchedEvents, err = register("dispatcher_events_total", metrics.NewDispatchedEventsTotal()); err != nil {
		return metricsOut{}, err
	}
	return out, nil
}

func registerMetrics(container *dig.Container) error {
	return provideAll(container, provideMetrics)
}
