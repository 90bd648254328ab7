package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/config"
	"onfleet-workers-go/internal/dispatch"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/gateway/workers"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/transport/kafka"
)

type inserterFunc func(ctx context.Context, id string, tasks []string) (*domain.Worker, error)

func (f inserterFunc) InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error) {
	return f(ctx, id, tasks)
}

func TestMakeDispatchHandler_MapsErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		err       error
		wantErr   bool
		permanent bool
	}{
		{"ok", nil, false, false},
		{"not found", fmt.Errorf("get: %w", apperr.NotFound), true, true},
		{"conflict", apperr.Conflict, true, true},
		{"unavailable", apperr.Unavailable, true, false},
		{"rate limited", apperr.RateLimited, true, false},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			p := dispatch.NewProcessor(inserterFunc(func(context.Context, string, []string) (*domain.Worker, error) {
				if tc.err != nil {
					return nil, tc.err
				}
				return &domain.Worker{ID: "w1", Tasks: []string{"t1"}}, nil
			}), logx.Nop(), nil, 0)

			err := makeDispatchHandler(p)(context.Background(), dispatch.Event{WorkerID: "w1", TaskIDs: []string{"t1"}})
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var perm kafka.PermanentError
			require.Equal(t, tc.permanent, errors.As(err, &perm))
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestMakeDispatchHandler_EmptyEventIsPermanent(t *testing.T) {
	t.Parallel()

	p := dispatch.NewProcessor(inserterFunc(func(context.Context, string, []string) (*domain.Worker, error) {
		t.Fatal("inserter must not be called")
		return nil, nil
	}), logx.Nop(), nil, 0)

	err := makeDispatchHandler(p)(context.Background(), dispatch.Event{WorkerID: "w1"})
	var perm kafka.PermanentError
	require.True(t, errors.As(err, &perm))
	require.ErrorIs(t, err, apperr.Invalid)
}

func TestBuildDispatcher_WithoutKafka(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Client.APIKey = "key"
	c, err := newTestBuilder(cfg).buildDispatcher(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(api workers.API, p *dispatch.Processor, consumer *kafka.Consumer) {
		require.NotNil(t, api)
		require.NotNil(t, p)
		require.Nil(t, consumer)
	})
	require.NoError(t, err)

	err = runDispatcher(c)
	require.ErrorIs(t, err, errNoConsumer)
}

func TestBuildDispatcher_ClientNeedsAPIKey(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Client.APIKey = ""
	c, err := newTestBuilder(cfg).buildDispatcher(context.Background())
	require.NoError(t, err)

	err = c.Invoke(func(workers.API) {})
	require.Error(t, err)
}

func TestDispatcherRunner_MustRun(t *testing.T) {
	t.Parallel()

	r := &DispatcherRunner{runFn: func(*dig.Container) error { return context.Canceled }}
	require.NotPanics(t, func() { r.MustRun(dig.New()) })

	r = &DispatcherRunner{runFn: func(*dig.Container) error { return errNoConsumer }}
	require.Panics(t, func() { r.MustRun(dig.New()) })
}

func TestDispatcher_RefusesToStartWithoutKafkaEnv(t *testing.T) {
	for _, k := range []string{"KAFKA_BROKERS", "KAFKA_TOPIC", "KAFKA_GROUP_ID", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(k, "")
	}
	t.Setenv("ONFLEET_API_KEY", "key")

	c, err := NewContainerBuilder().
		WithConfig(config.LoadEnv).
		buildDispatcher(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Invoke(func(cfg *config.Config, consumer *kafka.Consumer) {
		require.Empty(t, cfg.Kafka.Brokers)
		require.Nil(t, consumer)
	}))
	require.ErrorIs(t, runDispatcher(c), errNoConsumer)
}

func TestDispatchTimeout(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Client.Timeout = 10 * time.Second
	cfg.Retry = config.Retry{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 2 * time.Second}
	require.Equal(t, 36*time.Second, dispatchTimeout(cfg))
	require.Greater(t, dispatchTimeout(cfg), cfg.Client.Timeout)

	cfg.Dispatch.Timeout = time.Minute
	require.Equal(t, time.Minute, dispatchTimeout(cfg))

	cfg.Dispatch.Timeout = 0
	cfg.Retry.MaxAttempts = 0
	require.Equal(t, 12*time.Second, dispatchTimeout(cfg))
}
