package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/dispatch"
	"onfleet-workers-go/internal/gateway/workers"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/telemetry"
	"onfleet-workers-go/internal/transport/kafka"
)

func (b *ContainerBuilder) buildDispatcher(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerMetrics(container); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := provideAll(container,
		provideWorkersAPI,
		provideProcessor,
		provideConsumer,
	); err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	return container, nil
}

// MustBuildDispatcherContainer builds the dispatcher container with production dependencies.
func MustBuildDispatcherContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuildDispatcher(ctx)
}

type workersAPIIn struct {
	dig.In

	Config         *config.Config
	Logger         logx.Logger
	Retries        prometheus.Counter       `name:"gateway_retries_total"`
	Durations      *prometheus.HistogramVec `name:"gateway_request_duration_seconds"`
	BreakerChanges *prometheus.CounterVec   `name:"gateway_breaker_state_changes_total"`
}

func provideWorkersAPI(in workersAPIIn) (workers.API, error) {
	cfg := in.Config
	return workers.New(workers.ClientConfig{
		Options: workers.Options{
			BaseURL:   cfg.Client.BaseURL,
			APIKey:    cfg.Client.APIKey,
			Timeout:   cfg.Client.Timeout,
			Logger:    in.Logger,
			Durations: in.Durations,
		},
		Rate:  cfg.Client.Rate,
		Burst: cfg.Client.Burst,
		Retry: workers.RetryConfig{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		Breaker: workers.BreakerConfig{
			Name:             "workers-api",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		},
		Retries:        in.Retries,
		BreakerChanges: in.BreakerChanges,
	})
}

type processorIn struct {
	dig.In

	API      workers.API
	Logger   logx.Logger
	Outcomes *prometheus.CounterVec `name:"dispatcher_events_total"`
	Config   *config.Config
}

func provideProcessor(in processorIn) *dispatch.Processor {
	return dispatch.NewProcessor(in.API, in.Logger, in.Outcomes, dispatchTimeout(in.Config))
}

// dispatchTimeout bounds a whole retried InsertTask: every attempt may use the
// full client timeout followed by the longest backoff.
func dispatchTimeout(cfg *config.Config) time.Duration {
	if cfg.Dispatch.Timeout > 0 {
		return cfg.Dispatch.Timeout
	}
	attempts := cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return time.Duration(attempts) * (cfg.Client.Timeout + cfg.Retry.MaxDelay)
}

// makeDispatchHandler marks errors redelivery cannot fix so the consumer commits past them.
func makeDispatchHandler(p *dispatch.Processor) kafka.HandleFunc {
	return func(ctx context.Context, e dispatch.Event) error {
		err := p.Handle(ctx, e)
		if err != nil && dispatch.Permanent(err) {
			return kafka.Permanent(err)
		}
		return err
	}
}

func provideConsumer(cfg *config.Config, logger logx.Logger, p *dispatch.Processor) (*kafka.Consumer, error) {
	return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, makeDispatchHandler(p))
}

// DispatcherRunner runs the Kafka dispatcher.
type DispatcherRunner struct {
	runFn func(*dig.Container) error
}

// NewDispatcherRunner returns a new DispatcherRunner.
func NewDispatcherRunner() *DispatcherRunner {
	return &DispatcherRunner{runFn: runDispatcher}
}

// MustRun consumes events until the container context is canceled.
func (r *DispatcherRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		loggerFrom(container).Info("dispatcher stopped")
		return
	}
	panic(err)
}

var errNoConsumer = errors.New("kafka is not configured: set KAFKA_BROKERS, KAFKA_TOPIC and KAFKA_GROUP_ID")

type dispatcherIn struct {
	dig.In

	Ctx      context.Context
	Logger   logx.Logger
	Consumer *kafka.Consumer
	Tracing  telemetry.Shutdown `optional:"true"`
}

func runDispatcher(container *dig.Container) error {
	return container.Invoke(dispatcherRun)
}

func dispatcherRun(in dispatcherIn) error {
	if in.Consumer == nil {
		return errNoConsumer
	}
	defer closeResources(in.Logger, nil, in.Tracing)
	defer func() {
		if err := in.Consumer.Close(); err != nil {
			in.Logger.Warn("kafka close error", logx.Err(err))
		}
	}()

	in.Logger.Info("dispatcher started")
	return in.Consumer.Run(in.Ctx)
}
