package worker

import (
	"context"

	"onfleet-workers-go/internal/domain"
)

// Repository defines the storage the worker Service runs on.
type Repository interface {
	// Create stores a new worker. A phone already in use is apperr.Conflict.
	Create(ctx context.Context, w *domain.Worker) error
	Get(ctx context.Context, id string) (*domain.Worker, error)
	List(ctx context.Context) ([]domain.Worker, error)
	// Modify loads the worker, applies fn and stores the result atomically.
	Modify(ctx context.Context, id string, fn func(*domain.Worker) error) (*domain.Worker, error)
	// Delete removes the worker if check (when non-nil) accepts it.
	Delete(ctx context.Context, id string, check func(*domain.Worker) error) error
	Schedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error)
	ReplaceSchedule(ctx context.Context, id string, entries []domain.WorkerSchedule) error
}
