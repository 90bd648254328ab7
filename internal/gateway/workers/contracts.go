package workers

import (
	"context"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/metadata"
)

// API is the worker resource of the platform.
type API interface {
	Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q *domain.WorkerQuery) ([]domain.Worker, error)
	Get(ctx context.Context, id string, q *domain.WorkerQuery) (*domain.Worker, error)
	GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error)
	GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error)
	SetSchedule(ctx context.Context, id string, s domain.WorkerSchedule) ([]domain.WorkerSchedule, error)
	InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error)
	Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error)
	MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error)
}

type counter interface {
	Inc()
}

// operation names used in logs, metrics and retry decisions
const (
	opCreate        = "create"
	opDelete        = "deleteOne"
	opList          = "get"
	opGet           = "getOne"
	opGetByLocation = "getByLocation"
	opGetSchedule   = "getSchedule"
	opSetSchedule   = "setSchedule"
	opInsertTask    = "insertTask"
	opUpdate        = "update"
	opMatchMetadata = "matchMetadata"
)

// idempotent operations may be replayed after a transport or server failure.
var idempotent = map[string]bool{
	opDelete:        true,
	opList:          true,
	opGet:           true,
	opGetByLocation: true,
	opGetSchedule:   true,
	opUpdate:        true,
	opMatchMetadata: true,
}

type scheduleEnvelope struct {
	Entries []domain.WorkerSchedule `json:"entries"`
}

type locationEnvelope struct {
	Workers []domain.Worker `json:"workers"`
}

type insertTaskRequest struct {
	Tasks []string `json:"tasks"`
}
