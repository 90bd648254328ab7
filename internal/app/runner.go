package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/dig"

	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/telemetry"
)

// Runner runs the sandbox HTTP server.
type Runner struct {
	runFn func(*dig.Container) error
}

// NewRunner returns a new Runner.
func NewRunner() *Runner {
	return &Runner{runFn: run}
}

// MustRun starts the HTTP server using the provided DI container
func (r *Runner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil {
		return
	}
	logger := loggerFrom(container)
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info("shutdown requested, exiting")
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("startup aborted: startup timeout exceeded")
	default:
		panic(err)
	}
}

func loggerFrom(container *dig.Container) logx.Logger {
	var logger logx.Logger = logx.Nop()
	_ = container.Invoke(func(l logx.Logger) { logger = l })
	return logger
}

type serveIn struct {
	dig.In

	Ctx     context.Context
	Logger  logx.Logger
	Server  *http.Server
	Pprof   *http.Server       `name:"pprof_server" optional:"true"`
	Closer  storeCloser        `optional:"true"`
	Tracing telemetry.Shutdown `optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(serve)
}

func serve(in serveIn) error {
	errCh := make(chan error, 2)
	startServer(in.Server, in.Logger, "workers-sandbox", errCh)
	if in.Pprof != nil {
		startServer(in.Pprof, in.Logger, "pprof", errCh)
	}

	var err error
	select {
	case <-in.Ctx.Done():
		in.Logger.Info("shutting down workers-sandbox")
		err = in.Ctx.Err()
	case err = <-errCh:
		in.Logger.Error("server failed", logx.Err(err))
	}

	gracefulShutdown(in.Server, in.Logger, 15*time.Second)
	if in.Pprof != nil {
		gracefulShutdown(in.Pprof, in.Logger, time.Second)
	}
	closeResources(in.Logger, in.Closer, in.Tracing)
	return err
}

func startServer(server *http.Server, logger logx.Logger, name string, errCh chan<- error) {
	go func() {
		logger.Info("listening", logx.String("server", name), logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Warn("graceful shutdown error", logx.Err(err))
	}
}

func closeResources(logger logx.Logger, closer storeCloser, tracing telemetry.Shutdown) {
	if closer != nil {
		if err := closer(); err != nil {
			logger.Error("store close error", logx.Err(err))
		}
	}
	if tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing(ctx); err != nil {
			logger.Warn("tracing shutdown error", logx.Err(err))
		}
	}
}
