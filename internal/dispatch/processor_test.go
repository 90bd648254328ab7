package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/dispatch"
	"onfleet-workers-go/internal/domain"
	testlog "onfleet-workers-go/internal/testutil"
)

func newOutcomes() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "dispatch_test_total", Help: "t"}, []string{"outcome"})
}

func TestProcessor_Handle_InsertsTrimmedTasks(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ins := NewMockTaskInserter(ctrl)
	outcomes := newOutcomes()
	p := dispatch.NewProcessor(ins, nil, outcomes, time.Second)

	ins.EXPECT().
		InsertTask(gomock.Any(), "w1", []string{"t1", "t2"}).
		Return(&domain.Worker{ID: "w1", Tasks: []string{"t0", "t1", "t2"}}, nil)

	err := p.Handle(context.Background(), dispatch.Event{
		WorkerID:  " w1 ",
		TaskIDs:   []string{"t1", " ", "t2 "},
		CreatedAt: time.Now().Add(-time.Second),
	})
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(outcomes.WithLabelValues(dispatch.OutcomeInserted)))
}

func TestProcessor_Handle_RejectsEmptyEvent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	p := dispatch.NewProcessor(NewMockTaskInserter(ctrl), nil, nil, 0)

	for _, e := range []dispatch.Event{
		{WorkerID: "", TaskIDs: []string{"t"}},
		{WorkerID: "w", TaskIDs: nil},
		{WorkerID: "w", TaskIDs: []string{"  "}},
	} {
		err := p.Handle(context.Background(), e)
		require.ErrorIs(t, err, apperr.Invalid)
		require.True(t, dispatch.Permanent(err))
	}
}

func TestProcessor_Handle_PermanentFailureIsLogged(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := testlog.New()
	ins := NewMockTaskInserter(ctrl)
	outcomes := newOutcomes()
	p := dispatch.NewProcessor(ins, rec.Logger(), outcomes, time.Second)

	ins.EXPECT().
		InsertTask(gomock.Any(), "gone", []string{"t1"}).
		Return(nil, fmt.Errorf("workers gateway: %w", apperr.NotFound))

	err := p.Handle(context.Background(), dispatch.Event{WorkerID: "gone", TaskIDs: []string{"t1"}})
	require.ErrorIs(t, err, apperr.NotFound)
	require.True(t, dispatch.Permanent(err))
	require.Equal(t, 1.0, testutil.ToFloat64(outcomes.WithLabelValues(dispatch.OutcomeDropped)))

	entries := rec.Entries()
	require.Len(t, entries, 1)
	require.Equal(t, "warn", entries[0].Level)
}

func TestProcessor_Handle_TransientFailureIsRetryable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ins := NewMockTaskInserter(ctrl)
	outcomes := newOutcomes()
	p := dispatch.NewProcessor(ins, nil, outcomes, time.Second)

	ins.EXPECT().
		InsertTask(gomock.Any(), "w1", []string{"t1"}).
		Return(nil, apperr.Unavailable)

	err := p.Handle(context.Background(), dispatch.Event{WorkerID: "w1", TaskIDs: []string{"t1"}})
	require.ErrorIs(t, err, apperr.Unavailable)
	require.False(t, dispatch.Permanent(err))
	require.Equal(t, 1.0, testutil.ToFloat64(outcomes.WithLabelValues(dispatch.OutcomeRetry)))
}

func TestProcessor_Handle_AppliesTimeout(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ins := NewMockTaskInserter(ctrl)
	p := dispatch.NewProcessor(ins, nil, nil, 50*time.Millisecond)

	ins.EXPECT().
		InsertTask(gomock.Any(), "w1", []string{"t1"}).
		DoAndReturn(func(ctx context.Context, _ string, _ []string) (*domain.Worker, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			require.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 50*time.Millisecond)
			return nil, context.DeadlineExceeded
		})

	err := p.Handle(context.Background(), dispatch.Event{WorkerID: "w1", TaskIDs: []string{"t1"}})
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, dispatch.Permanent(err))
}

func TestPermanent(t *testing.T) {
	t.Parallel()

	require.True(t, dispatch.Permanent(apperr.Invalid))
	require.True(t, dispatch.Permanent(apperr.Conflict))
	require.True(t, dispatch.Permanent(apperr.Unauthorized))
	require.False(t, dispatch.Permanent(apperr.RateLimited))
	require.False(t, dispatch.Permanent(errors.New("boom")))
}
