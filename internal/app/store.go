package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/dig"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/repository"
	"onfleet-workers-go/internal/repository/badgerstore"
	"onfleet-workers-go/internal/service/worker"
)

// storeCloser releases whatever backs the worker repository.
type storeCloser func() error

type storeOut struct {
	dig.Out

	Repo   worker.Repository
	Closer storeCloser
}

func registerStore(
	container *dig.Container,
	dbConnect dbConnectFunc,
	openBadger func(string, bool) (*badgerstore.Store, error),
) error {
	provider := func(ctx context.Context, cfg *config.Config, logger logx.Logger) (storeOut, error) {
		switch cfg.Sandbox.StoreDriver {
		case config.StorePostgres:
			pool, err := dbConnect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
			if err != nil {
				return storeOut{}, err
			}
			if err := repository.Migrate(ctx, pool); err != nil {
				pool.Close()
				return storeOut{}, err
			}
			logger.Info("worker store: postgres", logx.String("host", cfg.DB.Host))
			return storeOut{
				Repo:   repository.NewWorkerRepo(pool),
				Closer: func() error { pool.Close(); return nil },
			}, nil
		case config.StoreBadger:
			st, err := openBadger(cfg.Sandbox.StoreDir, cfg.Sandbox.SyncWrites)
			if err != nil {
				return storeOut{}, err
			}
			logger.Info("worker store: badger",
				logx.String("dir", cfg.Sandbox.StoreDir),
				logx.Bool("in_memory", cfg.Sandbox.StoreDir == ""),
			)
			return storeOut{Repo: st, Closer: st.Close}, nil
		default:
			return storeOut{}, fmt.Errorf("unknown store driver %q", cfg.Sandbox.StoreDriver)
		}
	}
	return provideAll(container, provider)
}
