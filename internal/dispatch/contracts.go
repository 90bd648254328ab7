//go:generate mockgen -source=contracts.go -destination=dispatch_mocks_test.go -package=dispatch_test

package dispatch

import (
	"context"

	"onfleet-workers-go/internal/domain"
)

// TaskInserter is the part of the workers API the dispatcher needs.
type TaskInserter interface {
	InsertTask(ctx context.Context, workerID string, tasks []string) (*domain.Worker, error)
}
