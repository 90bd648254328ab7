package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/metadata"
)

// BreakerConfig configures BreakerGateway.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state window for clearing counts (0 = never)
	Timeout          time.Duration // open -> half-open
	FailureThreshold uint32        // consecutive failures that trip the circuit
}

// BreakerGateway stops calling the platform after repeated transient failures.
// Client errors (validation, not found, conflict) do not count as failures.
type BreakerGateway struct {
	next   API
	cb     *gobreaker.CircuitBreaker
	logger logx.Logger
}

// NewBreakerGateway wraps next. changes may be nil.
func NewBreakerGateway(next API, logger logx.Logger, changes *prometheus.CounterVec, cfg BreakerConfig) *BreakerGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.Name == "" {
		cfg.Name = "workers-api"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logx.String("name", name),
				logx.String("from", from.String()),
				logx.String("to", to.String()),
			)
			if changes != nil {
				changes.WithLabelValues(to.String()).Inc()
			}
		},
	}
	return &BreakerGateway{next: next, cb: gobreaker.NewCircuitBreaker(settings), logger: logger}
}

// State returns the current circuit state.
func (b *BreakerGateway) State() gobreaker.State { return b.cb.State() }

func (b *BreakerGateway) Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error) {
	return guard(ctx, b, opCreate, func(ctx context.Context) (*domain.Worker, error) {
		return b.next.Create(ctx, req)
	})
}

func (b *BreakerGateway) Delete(ctx context.Context, id string) error {
	_, err := guard(ctx, b, opDelete, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, b.next.Delete(ctx, id)
	})
	return err
}

func (b *BreakerGateway) List(ctx context.Context, q *domain.WorkerQuery) ([]domain.Worker, error) {
	return guard(ctx, b, opList, func(ctx context.Context) ([]domain.Worker, error) {
		return b.next.List(ctx, q)
	})
}

func (b *BreakerGateway) Get(ctx context.Context, id string, q *domain.WorkerQuery) (*domain.Worker, error) {
	return guard(ctx, b, opGet, func(ctx context.Context) (*domain.Worker, error) {
		return b.next.Get(ctx, id, q)
	})
}

func (b *BreakerGateway) GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error) {
	return guard(ctx, b, opGetByLocation, func(ctx context.Context) ([]domain.Worker, error) {
		return b.next.GetByLocation(ctx, q)
	})
}

func (b *BreakerGateway) GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	return guard(ctx, b, opGetSchedule, func(ctx context.Context) ([]domain.WorkerSchedule, error) {
		return b.next.GetSchedule(ctx, id)
	})
}

func (b *BreakerGateway) SetSchedule(ctx context.Context, id string, s domain.WorkerSchedule) ([]domain.WorkerSchedule, error) {
	return guard(ctx, b, opSetSchedule, func(ctx context.Context) ([]domain.WorkerSchedule, error) {
		return b.next.SetSchedule(ctx, id, s)
	})
}

func (b *BreakerGateway) InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error) {
	return guard(ctx, b, opInsertTask, func(ctx context.Context) (*domain.Worker, error) {
		return b.next.InsertTask(ctx, id, tasks)
	})
}

func (b *BreakerGateway) Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error) {
	return guard(ctx, b, opUpdate, func(ctx context.Context) (*domain.Worker, error) {
		return b.next.Update(ctx, id, u)
	})
}

func (b *BreakerGateway) MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error) {
	return guard(ctx, b, opMatchMetadata, func(ctx context.Context) ([]domain.Worker, error) {
		return b.next.MatchMetadata(ctx, f)
	})
}

func guard[T any](ctx context.Context, b *BreakerGateway, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		callErr error
	)
	res, err := b.cb.Execute(func() (interface{}, error) {
		v, err := call(ctx)
		if err != nil && apperr.Transient(err) {
			return nil, err
		}
		// client errors pass through without tripping the circuit
		callErr = err
		return v, nil
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		b.logger.Warn("workers gateway short-circuited", logx.String("op", op), logx.Err(err))
		return zero, fmt.Errorf("workers gateway: %s: %w: %v", op, apperr.Unavailable, err)
	case err != nil:
		return zero, err
	case callErr != nil:
		return zero, callErr
	}
	v, _ := res.(T)
	return v, nil
}

var _ API = (*BreakerGateway)(nil)
