package badgerstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
)

type StoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	st, err := Open("", false)
	s.Require().NoError(err)
	s.store = st
}

func (s *StoreSuite) TearDownTest() {
	s.Require().NoError(s.store.Close())
}

func worker(id, phone string, created int64) *domain.Worker {
	return &domain.Worker{
		ID:          id,
		Name:        "Worker " + id,
		Phone:       phone,
		Teams:       []string{"t1"},
		Tasks:       []string{},
		TimeCreated: created,
	}
}

func (s *StoreSuite) TestCreateGet() {
	w := worker("a", "+14155550100", 1)
	s.Require().NoError(s.store.Create(s.ctx, w))

	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(w, got)

	_, err = s.store.Get(s.ctx, "missing")
	s.ErrorIs(err, apperr.NotFound)
}

func (s *StoreSuite) TestCreate_DuplicatePhoneConflicts() {
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550100", 1)))
	err := s.store.Create(s.ctx, worker("b", "+14155550100", 2))
	s.ErrorIs(err, apperr.Conflict)

	err = s.store.Create(s.ctx, worker("a", "+14155550199", 3))
	s.ErrorIs(err, apperr.Conflict)
}

func (s *StoreSuite) TestListOrdersByCreation() {
	s.Require().NoError(s.store.Create(s.ctx, worker("z", "+14155550100", 1)))
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550101", 2)))

	list, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("z", list[0].ID)
	s.Equal("a", list[1].ID)
}

func (s *StoreSuite) TestModify() {
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550100", 1)))

	got, err := s.store.Modify(s.ctx, "a", func(w *domain.Worker) error {
		w.Capacity = 5
		w.Tasks = append(w.Tasks, "t")
		return nil
	})
	s.Require().NoError(err)
	s.Equal(5.0, got.Capacity)

	stored, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal([]string{"t"}, stored.Tasks)

	_, err = s.store.Modify(s.ctx, "a", func(*domain.Worker) error { return apperr.Invalid })
	s.ErrorIs(err, apperr.Invalid)

	_, err = s.store.Modify(s.ctx, "missing", func(*domain.Worker) error { return nil })
	s.ErrorIs(err, apperr.NotFound)
}

func (s *StoreSuite) TestModify_ConcurrentAppendsAreNotLost() {
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550100", 1)))

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for _, task := range []string{"t1", "t2", "t3", "t4"} {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Modify(s.ctx, "a", func(w *domain.Worker) error {
				w.Tasks = append(w.Tasks, task)
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		}
	}
	got, err := s.store.Get(s.ctx, "a")
	s.Require().NoError(err)
	s.Len(got.Tasks, ok)
}

func (s *StoreSuite) TestDelete() {
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550100", 1)))

	err := s.store.Delete(s.ctx, "a", func(*domain.Worker) error { return apperr.Conflict })
	s.ErrorIs(err, apperr.Conflict)

	s.Require().NoError(s.store.Delete(s.ctx, "a", nil))
	_, err = s.store.Get(s.ctx, "a")
	s.ErrorIs(err, apperr.NotFound)
	s.ErrorIs(s.store.Delete(s.ctx, "a", nil), apperr.NotFound)

	// phone is free again
	s.NoError(s.store.Create(s.ctx, worker("b", "+14155550100", 2)))
}

func (s *StoreSuite) TestSchedule() {
	s.Require().NoError(s.store.Create(s.ctx, worker("a", "+14155550100", 1)))

	empty, err := s.store.Schedule(s.ctx, "a")
	s.Require().NoError(err)
	s.Empty(empty)

	entries := []domain.WorkerSchedule{{Date: "2024-05-01", Timezone: "UTC", Shifts: []domain.Shift{{Start: 1, End: 2}}}}
	s.Require().NoError(s.store.ReplaceSchedule(s.ctx, "a", entries))

	got, err := s.store.Schedule(s.ctx, "a")
	s.Require().NoError(err)
	s.Equal(entries, got)

	s.ErrorIs(s.store.ReplaceSchedule(s.ctx, "missing", entries), apperr.NotFound)
	_, err = s.store.Schedule(s.ctx, "missing")
	s.ErrorIs(err, apperr.NotFound)
}

func TestOpen_OnDisk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	st, err := Open(dir, true)
	require.NoError(t, err)
	require.NoError(t, st.Create(context.Background(), worker("a", "+14155550100", 1)))
	require.NoError(t, st.Ping(context.Background()))
	require.NoError(t, st.Close())

	reopened, err := Open(dir, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, "+14155550100", got.Phone)
}
