package workers

import (
	"context"
	"errors"
	"time"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/metadata"
)

// RetryConfig описывает поведение RetryingGateway
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway repeats failed calls with exponential backoff.
// Rate-limited calls are always repeated; transport and server failures only
// for operations that are safe to replay.
type RetryingGateway struct {
	next    API
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
	sleep   func(context.Context, time.Duration) bool
}

// NewRetryingGateway конструктор который проверяет, что next не nil и возвращает RetryingGateway
func NewRetryingGateway(next API, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingGateway{next: next, logger: logger, retries: retries, cfg: cfg, sleep: sleepWithContext}
}

// Create does not replay transport failures: a lost response may hide a created worker.
func (g *RetryingGateway) Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error) {
	return retry(ctx, g, opCreate, func(ctx context.Context) (*domain.Worker, error) {
		return g.next.Create(ctx, req)
	})
}

func (g *RetryingGateway) Delete(ctx context.Context, id string) error {
	_, err := retry(ctx, g, opDelete, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, g.next.Delete(ctx, id)
	})
	return err
}

func (g *RetryingGateway) List(ctx context.Context, q *domain.WorkerQuery) ([]domain.Worker, error) {
	return retry(ctx, g, opList, func(ctx context.Context) ([]domain.Worker, error) {
		return g.next.List(ctx, q)
	})
}

func (g *RetryingGateway) Get(ctx context.Context, id string, q *domain.WorkerQuery) (*domain.Worker, error) {
	return retry(ctx, g, opGet, func(ctx context.Context) (*domain.Worker, error) {
		return g.next.Get(ctx, id, q)
	})
}

func (g *RetryingGateway) GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error) {
	return retry(ctx, g, opGetByLocation, func(ctx context.Context) ([]domain.Worker, error) {
		return g.next.GetByLocation(ctx, q)
	})
}

func (g *RetryingGateway) GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	return retry(ctx, g, opGetSchedule, func(ctx context.Context) ([]domain.WorkerSchedule, error) {
		return g.next.GetSchedule(ctx, id)
	})
}

func (g *RetryingGateway) SetSchedule(ctx context.Context, id string, s domain.WorkerSchedule) ([]domain.WorkerSchedule, error) {
	return retry(ctx, g, opSetSchedule, func(ctx context.Context) ([]domain.WorkerSchedule, error) {
		return g.next.SetSchedule(ctx, id, s)
	})
}

func (g *RetryingGateway) InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error) {
	return retry(ctx, g, opInsertTask, func(ctx context.Context) (*domain.Worker, error) {
		return g.next.InsertTask(ctx, id, tasks)
	})
}

func (g *RetryingGateway) Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error) {
	return retry(ctx, g, opUpdate, func(ctx context.Context) (*domain.Worker, error) {
		return g.next.Update(ctx, id, u)
	})
}

func (g *RetryingGateway) MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error) {
	return retry(ctx, g, opMatchMetadata, func(ctx context.Context) ([]domain.Worker, error) {
		return g.next.MatchMetadata(ctx, f)
	})
}

func retry[T any](ctx context.Context, g *RetryingGateway, op string, call func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	// цикл по повторам
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		v, err := call(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		// проверяем условия повтора
		if ctx.Err() != nil || attempt == g.cfg.MaxAttempts || !isRetryable(op, err) {
			break
		}
		// вычисляем задержку
		delay := backoff(g.cfg.BaseDelay, g.cfg.MaxDelay, attempt)
		if ra, ok := RetryAfter(err); ok && ra > delay {
			delay = ra
		}
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("workers gateway retry",
			logx.String("method", op),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
		if !g.sleep(ctx, delay) {
			break
		}
	}
	return zero, lastErr
}

// isRetryable определяет, является ли ошибка повторяемой
func isRetryable(op string, err error) bool {
	if errors.Is(err, apperr.RateLimited) {
		return true
	}
	if errors.Is(err, apperr.Transport) || errors.Is(err, apperr.Unavailable) {
		return idempotent[op]
	}
	return false
}

// backoff вычисляет задержку повтора
func backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 32 {
		return max
	}
	d := base << (attempt - 1)
	if d <= 0 || (max > 0 && d > max) {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

var _ API = (*RetryingGateway)(nil)
