//go:build integration

package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"onfleet-workers-go/internal/config"
)

func TestBuild_PostgresStore_EndToEnd(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("workers_db"),
		postgres.WithUsername("workers"),
		postgres.WithPassword("workers"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Sandbox.StoreDriver = config.StorePostgres
	cfg.DB = config.DB{Host: host, Port: port.Port(), User: "workers", Pass: "workers", Name: "workers_db"}

	c, err := NewContainerBuilder().
		WithConfig(func() (*config.Config, error) { return cfg, nil }).
		build(ctx)
	require.NoError(t, err)

	err = c.Invoke(func(srv *http.Server, closer storeCloser) {
		defer closer()

		body := `{"name":"Ada Driver","phone":"+15555550100","teams":["team-1"]}`
		req := httptest.NewRequest(http.MethodPost, "/api/v2/workers", strings.NewReader(body))
		req.SetBasicAuth("k1", "")
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		req = httptest.NewRequest(http.MethodGet, "/api/v2/workers?phones=%2B15555550100", nil)
		req.SetBasicAuth("k1", "")
		rr = httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		require.Contains(t, rr.Body.String(), "Ada Driver")
	})
	require.NoError(t, err)
}
