//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/metadata"
	"onfleet-workers-go/internal/repository"
)

type WorkerRepositorySuite struct {
	suite.Suite
	pool *pgxpool.Pool
	repo *repository.WorkerRepo
}

func TestWorkerRepositorySuite(t *testing.T) {
	suite.Run(t, new(WorkerRepositorySuite))
}

func (s *WorkerRepositorySuite) SetupSuite() {
	s.Require().NotNil(tcPool, "tcPool must be initialized in TestMain")

	s.pool = tcPool
	s.repo = repository.NewWorkerRepo(tcPool)
}

func (s *WorkerRepositorySuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE workers CASCADE`)
	s.Require().NoError(err)
}

func newWorker(id, phone string, created int64) *domain.Worker {
	return &domain.Worker{
		ID:            id,
		Name:          "Worker " + id,
		Phone:         phone,
		Tasks:         []string{},
		Teams:         []string{"team"},
		Metadata:      []metadata.Entry{metadata.String("zone", "north")},
		AccountStatus: domain.AccountInvited,
		TimeCreated:   created,
		Location:      &domain.Location{Longitude: 13.4, Latitude: 52.5},
	}
}

func (s *WorkerRepositorySuite) TestCreateAndGet() {
	ctx := context.Background()
	in := newWorker("a", "+14155550100", 1)

	s.Require().NoError(s.repo.Create(ctx, in))

	got, err := s.repo.Get(ctx, "a")
	s.Require().NoError(err)
	s.Equal(in.Name, got.Name)
	s.Equal(in.Phone, got.Phone)
	s.Equal(in.Teams, got.Teams)
	s.Equal(in.Location, got.Location)
	s.Len(got.Metadata, 1)
	s.JSONEq(string(in.Metadata[0].Value), string(got.Metadata[0].Value))
}

func (s *WorkerRepositorySuite) TestCreate_DuplicatePhone() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550100", 1)))

	err := s.repo.Create(ctx, newWorker("b", "+14155550100", 2))
	s.ErrorIs(err, apperr.Conflict)
}

func (s *WorkerRepositorySuite) TestGet_NotFound() {
	_, err := s.repo.Get(context.Background(), "missing")
	s.ErrorIs(err, apperr.NotFound)
}

func (s *WorkerRepositorySuite) TestList_OrderedByCreation() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("z", "+14155550100", 1)))
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550101", 2)))

	list, err := s.repo.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("z", list[0].ID)
	s.Equal("a", list[1].ID)
}

func (s *WorkerRepositorySuite) TestModify_SerializesConcurrentWriters() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550100", 1)))

	var wg sync.WaitGroup
	for _, task := range []string{"t1", "t2", "t3", "t4", "t5"} {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.repo.Modify(ctx, "a", func(w *domain.Worker) error {
				w.Tasks = append(w.Tasks, task)
				return nil
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.repo.Get(ctx, "a")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"t1", "t2", "t3", "t4", "t5"}, got.Tasks)
}

func (s *WorkerRepositorySuite) TestModify_CallbackErrorRollsBack() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550100", 1)))

	_, err := s.repo.Modify(ctx, "a", func(w *domain.Worker) error {
		w.Name = "changed"
		return apperr.Invalid
	})
	s.ErrorIs(err, apperr.Invalid)

	got, err := s.repo.Get(ctx, "a")
	s.Require().NoError(err)
	s.Equal("Worker a", got.Name)
}

func (s *WorkerRepositorySuite) TestDelete_CascadesSchedule() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550100", 1)))
	s.Require().NoError(s.repo.ReplaceSchedule(ctx, "a", []domain.WorkerSchedule{
		{Date: "2024-05-01", Timezone: "UTC", Shifts: []domain.Shift{{Start: 1, End: 2}}},
	}))

	err := s.repo.Delete(ctx, "a", func(*domain.Worker) error { return apperr.Conflict })
	s.ErrorIs(err, apperr.Conflict)

	s.Require().NoError(s.repo.Delete(ctx, "a", nil))

	var n int
	s.Require().NoError(s.pool.QueryRow(ctx, `SELECT count(*) FROM worker_schedules`).Scan(&n))
	s.Zero(n)
	s.ErrorIs(s.repo.Delete(ctx, "a", nil), apperr.NotFound)
}

func (s *WorkerRepositorySuite) TestSchedule_Replace() {
	ctx := context.Background()
	s.Require().NoError(s.repo.Create(ctx, newWorker("a", "+14155550100", 1)))

	empty, err := s.repo.Schedule(ctx, "a")
	s.Require().NoError(err)
	s.Empty(empty)

	first := []domain.WorkerSchedule{{Date: "2024-05-01", Timezone: "UTC", Shifts: []domain.Shift{{Start: 1, End: 2}}}}
	second := []domain.WorkerSchedule{{Date: "2024-05-02", Timezone: "Europe/Berlin", Shifts: []domain.Shift{{Start: 3, End: 4}}}}
	s.Require().NoError(s.repo.ReplaceSchedule(ctx, "a", first))
	s.Require().NoError(s.repo.ReplaceSchedule(ctx, "a", second))

	got, err := s.repo.Schedule(ctx, "a")
	s.Require().NoError(err)
	s.Equal(second, got)

	_, err = s.repo.Schedule(ctx, "missing")
	s.ErrorIs(err, apperr.NotFound)
	s.ErrorIs(s.repo.ReplaceSchedule(ctx, "missing", first), apperr.NotFound)
}
