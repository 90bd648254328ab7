package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/http/handlers"
	"onfleet-workers-go/internal/http/middleware/ratelimit"
	"onfleet-workers-go/internal/http/pprofserver"
	"onfleet-workers-go/internal/http/router"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/repository/badgerstore"
	"onfleet-workers-go/internal/service/worker"
	"onfleet-workers-go/internal/telemetry"
)

type dbConnectFunc func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect  dbConnectFunc
	openBadger func(dir string, syncWrites bool) (*badgerstore.Store, error)
	loadConfig func() (*config.Config, error)
	logFatalf  func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect:  connectDbWithRetry,
		openBadger: badgerstore.Open,
		loadConfig: config.Load,
		logFatalf:  log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(fn dbConnectFunc) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithConfig replaces config.Load.
func (b *ContainerBuilder) WithConfig(fn func() (*config.Config, error)) *ContainerBuilder {
	if fn != nil {
		b.loadConfig = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds the sandbox container.
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

// MustBuildDispatcher builds the dispatcher container.
func (b *ContainerBuilder) MustBuildDispatcher(ctx context.Context) *dig.Container {
	container, err := b.buildDispatcher(ctx)
	if err != nil {
		b.logFatalf("failed to build dispatcher container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx, b.loadConfig); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerMetrics(container); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if err := registerStore(container, b.dbConnect, b.openBadger); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds the sandbox container with production dependencies.
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context, loadConfig func() (*config.Config, error)) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		loadConfig,
		func(ctx context.Context, cfg *config.Config, logger logx.Logger) (telemetry.Shutdown, error) {
			return telemetry.Setup(ctx, cfg.Telemetry, logger)
		},
	)
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		func(repo worker.Repository, cfg *config.Config, logger logx.Logger) *worker.Service {
			return worker.NewService(repo, cfg.Sandbox.Organization, cfg.Sandbox.OperationTimeout, logger)
		},
	)
}

type routerIn struct {
	dig.In

	Config    *config.Config
	Logger    logx.Logger
	Base      *handlers.Handlers
	Workers   *handlers.WorkerHandler
	RateLimit *ratelimit.Middleware
}

func provideRouter(in routerIn) http.Handler {
	return router.New(router.Params{
		Logger:    in.Logger,
		Base:      in.Base,
		Workers:   in.Workers,
		RateLimit: in.RateLimit,
		APIKeys:   in.Config.Sandbox.APIKeys,
		Timeout:   in.Config.Sandbox.OperationTimeout + 2*time.Second,
	})
}

type serversOut struct {
	dig.Out

	Main  *http.Server
	Pprof *http.Server `name:"pprof_server"`
}

func provideServers(cfg *config.Config, mux http.Handler) serversOut {
	out := serversOut{
		Main: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           otelhttp.NewHandler(mux, "workers-sandbox"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
	if cfg.Pprof.Enabled {
		out.Pprof = pprofserver.NewServer(cfg.Pprof.Addr, pprofserver.Config{
			User: cfg.Pprof.User,
			Pass: cfg.Pprof.Pass,
		})
	}
	return out
}

func registerHTTP(container *dig.Container) error {
	return provideAll(container,
		handlers.New,
		handlers.NewWorkerUsecase,
		handlers.NewWorkerHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		provideRouter,
		provideServers,
	)
}
