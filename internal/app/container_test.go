package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/http/handlers"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/service/worker"
)

func testConfig() *config.Config {
	return &config.Config{
		Port: 8080,
		Sandbox: config.Sandbox{
			Organization:     "org-test",
			APIKeys:          []string{"k1"},
			OperationTimeout: time.Second,
			StoreDriver:      config.StoreBadger,
		},
		DB:        config.DefaultDB(),
		RateLimit: config.DefaultRateLimit(),
		Client:    config.DefaultClient(),
		Retry:     config.DefaultRetry(),
		Breaker:   config.DefaultBreaker(),
	}
}

func newTestBuilder(cfg *config.Config) *ContainerBuilder {
	return NewContainerBuilder().
		WithConfig(func() (*config.Config, error) { return cfg, nil }).
		WithDBConnect(func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
			return nil, errors.New("db must not be used")
		})
}

func verifyServer(t *testing.T, srv *http.Server) {
	t.Helper()

	require.NotNil(t, srv, "http.Server is nil")
	require.Equal(t, ":8080", srv.Addr)
	require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
	require.Greater(t, srv.ReadTimeout, time.Duration(0))
	require.Greater(t, srv.WriteTimeout, time.Duration(0))
	require.Greater(t, srv.IdleTimeout, time.Duration(0))
}

func TestBuild_BadgerStore_ProvidesServerAndHandlers(t *testing.T) {
	t.Parallel()

	c, err := newTestBuilder(testConfig()).build(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(
		srv *http.Server,
		base *handlers.Handlers,
		wh *handlers.WorkerHandler,
		svc *worker.Service,
		closer storeCloser,
	) {
		verifyServer(t, srv)
		require.NotNil(t, base)
		require.NotNil(t, wh)
		require.NotNil(t, svc)
		require.NoError(t, closer())
	})
	require.NoError(t, err)
}

func TestBuild_ServerRoutesThroughSandbox(t *testing.T) {
	t.Parallel()

	c, err := newTestBuilder(testConfig()).build(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(srv *http.Server, closer storeCloser) {
		defer closer()

		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
		require.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v2/workers", nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/v2/workers", nil)
		req.SetBasicAuth("k1", "")
		rr = httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.JSONEq(t, `[]`, rr.Body.String())
	})
	require.NoError(t, err)
}

func TestBuild_PprofServerOnlyWhenEnabled(t *testing.T) {
	t.Parallel()

	type pprofIn struct {
		dig.In
		Pprof *http.Server `name:"pprof_server" optional:"true"`
	}

	c, err := newTestBuilder(testConfig()).build(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Invoke(func(in pprofIn) { require.Nil(t, in.Pprof) }))

	cfg := testConfig()
	cfg.Pprof = config.PprofConfig{Enabled: true, Addr: "127.0.0.1:6060"}
	c, err = newTestBuilder(cfg).build(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Invoke(func(in pprofIn) {
		require.NotNil(t, in.Pprof)
		require.Equal(t, "127.0.0.1:6060", in.Pprof.Addr)
	}))
}

func TestBuild_PostgresStore_ConnectErrorSurfaces(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Sandbox.StoreDriver = config.StorePostgres

	var gotDSN string
	b := NewContainerBuilder().
		WithConfig(func() (*config.Config, error) { return cfg, nil }).
		WithDBConnect(func(_ context.Context, _ logx.Logger, dsn string, _ int, _ time.Duration) (*pgxpool.Pool, error) {
			gotDSN = dsn
			return nil, errors.New("connection refused")
		})

	c, err := b.build(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(*http.Server) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "connection refused")
	require.Contains(t, gotDSN, "postgres://")
}

func TestMustBuild_CallsLogFatalfOnConfigError(t *testing.T) {
	t.Parallel()

	var called bool
	b := NewContainerBuilder().
		WithConfig(func() (*config.Config, error) { return nil, errors.New("bad env") }).
		WithLogFatalf(func(string, ...interface{}) { called = true })

	c := b.MustBuild(context.Background())
	require.NotNil(t, c)
	require.False(t, called, "config is resolved lazily")

	err := c.Invoke(func(*config.Config) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad env")
}

func TestProvideAll_Success(t *testing.T) {
	t.Parallel()

	c := dig.New()

	err := provideAll(c,
		func() context.Context { return context.Background() },
		func() time.Duration { return 3 * time.Second },
	)
	require.NoError(t, err)

	err = c.Invoke(func(ctx context.Context, d time.Duration) {
		require.NotNil(t, ctx)
		require.Equal(t, 3*time.Second, d)
	})
	require.NoError(t, err)
}

func TestProvideAll_InvalidProvider(t *testing.T) {
	t.Parallel()

	c := dig.New()

	type bad struct{}
	err := provideAll(c, bad{})
	require.Error(t, err)
}

func TestRegisterCore_ProvidesDependencies(t *testing.T) {
	t.Parallel()

	c := dig.New()
	cfg := testConfig()
	require.NoError(t, registerCore(c, context.Background(), func() (*config.Config, error) { return cfg, nil }))

	err := c.Invoke(func(ctx context.Context, logger logx.Logger, got *config.Config) {
		require.NotNil(t, ctx)
		require.NotNil(t, logger)
		require.Same(t, cfg, got)
	})
	require.NoError(t, err)
}
