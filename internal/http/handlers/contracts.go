package handlers

import (
	"context"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/metadata"
	"onfleet-workers-go/internal/service/worker"
)

type workerUsecase interface {
	Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error)
	Get(ctx context.Context, id string) (*domain.Worker, error)
	List(ctx context.Context, q domain.WorkerQuery) ([]domain.Worker, error)
	GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error)
	Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error)
	Delete(ctx context.Context, id string) error
	GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error)
	SetSchedule(ctx context.Context, id string, s domain.WorkerSchedule) ([]domain.WorkerSchedule, error)
	InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error)
	MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error)
	ReportTelemetry(ctx context.Context, id string, t domain.Telemetry) (*domain.Worker, error)
}

// NewWorkerUsecase wires a worker Service into a workerUsecase.
func NewWorkerUsecase(svc *worker.Service) workerUsecase {
	return svc
}
