package workers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/gateway/workers"
)

func TestNew_RetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entries":[]}`))
	}))
	defer srv.Close()

	retries := prometheus.NewCounter(prometheus.CounterOpts{Name: "chain_retries", Help: "t"})
	api, err := workers.New(workers.ClientConfig{
		Options: workers.Options{BaseURL: srv.URL, APIKey: "k"},
		Rate:    1000,
		Burst:   10,
		Retry:   workers.RetryConfig{MaxAttempts: 4, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
		Retries: retries,
	})
	require.NoError(t, err)

	got, err := api.GetSchedule(context.Background(), "w1")
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, int32(3), calls.Load())
	require.Equal(t, 2.0, testutil.ToFloat64(retries))
}

func TestNew_BreakerOpensAfterExhaustedRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	api, err := workers.New(workers.ClientConfig{
		Options: workers.Options{BaseURL: srv.URL, APIKey: "k"},
		Retry:   workers.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		Breaker: workers.BreakerConfig{FailureThreshold: 2, Timeout: time.Minute},
	})
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err = api.Get(ctx, "w1", nil)
		require.ErrorIs(t, err, apperr.Unavailable)
	}
	require.Equal(t, int32(4), calls.Load())

	_, err = api.Get(ctx, "w1", nil)
	require.ErrorIs(t, err, apperr.Unavailable)
	require.Equal(t, int32(4), calls.Load(), "open circuit must not reach the server")
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := workers.New(workers.ClientConfig{})
	require.Error(t, err)
}
