package worker

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/logx"
	"onfleet-workers-go/internal/metadata"
)

// Service implements the worker resource of the sandbox on top of a repository.
type Service struct {
	repo             Repository
	organization     string
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
	newID            func() string
}

// NewService creates and configures a worker Service.
func NewService(r Repository, organization string, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		repo:             r,
		organization:     organization,
		operationTimeout: timeout,
		logger:           logger,
		now:              time.Now,
		newID:            newWorkerID,
	}
}

// newWorkerID returns a 24 character id in the platform's style.
func newWorkerID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// Create validates req and stores a new invited, off-duty worker.
func (s *Service) Create(ctx context.Context, req domain.CreateWorker) (*domain.Worker, error) {
	if err := domain.ValidateCreate(&req); err != nil {
		return nil, err
	}
	now := s.now().UnixMilli()
	w := &domain.Worker{
		ID:               s.newID(),
		TimeCreated:      now,
		TimeLastModified: now,
		Organization:     s.organization,
		Name:             strings.TrimSpace(req.Name),
		DisplayName:      req.DisplayName,
		Phone:            req.Phone,
		Tasks:            []string{},
		AccountStatus:    domain.AccountInvited,
		Metadata:         []metadata.Entry{},
		Teams:            append([]string(nil), req.Teams...),
		Vehicle:          cloneVehicle(req.Vehicle),
	}
	if req.Capacity != nil {
		w.Capacity = *req.Capacity
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	s.logger.Info("worker created", logx.String("worker_id", w.ID), logx.Strings("teams", w.Teams))
	return w, nil
}

// Get retrieves a worker by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	w, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, apperr.NotFound
	}
	return w, nil
}

// List returns workers matching every selector of q. Empty selectors match all.
func (s *Service) List(ctx context.Context, q domain.WorkerQuery) ([]domain.Worker, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Worker, 0, len(all))
	for i := range all {
		if matchesQuery(&all[i], q) {
			out = append(out, all[i])
		}
	}
	return out, nil
}

func matchesQuery(w *domain.Worker, q domain.WorkerQuery) bool {
	if len(q.Phones) > 0 && !contains(q.Phones, w.Phone) {
		return false
	}
	if len(q.States) > 0 {
		ok := false
		for _, st := range q.States {
			if w.State() == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(q.Teams) > 0 {
		ok := false
		for _, t := range q.Teams {
			if w.HasTeam(t) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// GetByLocation returns workers whose last known location lies within the
// radius (inclusive) of the query point, nearest first.
func (s *Service) GetByLocation(ctx context.Context, q domain.LocationQuery) ([]domain.Worker, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	center, radius := q.Point(), q.EffectiveRadius()

	type hit struct {
		w    domain.Worker
		dist float64
	}
	hits := make([]hit, 0)
	for _, w := range all {
		if w.Location == nil {
			continue
		}
		if d := Distance(center, *w.Location); d <= radius {
			hits = append(hits, hit{w: w, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	out := make([]domain.Worker, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.w)
	}
	return out, nil
}

// Update applies the given fields. Server-derived fields cannot be changed here.
func (s *Service) Update(ctx context.Context, id string, u domain.PartialWorkerUpdate) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domain.ValidateUpdate(&u); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Modify(ctx, id, func(w *domain.Worker) error {
		if u.Name != nil {
			w.Name = strings.TrimSpace(*u.Name)
		}
		if u.DisplayName != nil {
			w.DisplayName = *u.DisplayName
		}
		if u.Capacity != nil {
			w.Capacity = *u.Capacity
		}
		if u.Metadata != nil {
			w.Metadata = metadata.Clone(*u.Metadata)
		}
		if u.Teams != nil {
			w.Teams = append([]string(nil), u.Teams...)
		}
		if u.Vehicle != nil {
			w.Vehicle = cloneVehicle(u.Vehicle)
		}
		w.TimeLastModified = s.now().UnixMilli()
		return nil
	})
}

// Delete removes a worker. A worker on duty cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := domain.ValidateID(id); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	err := s.repo.Delete(ctx, id, func(w *domain.Worker) error {
		if w.OnDuty {
			return fmt.Errorf("%w: worker %s is on duty", apperr.Conflict, w.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("worker deleted", logx.String("worker_id", id))
	return nil
}

// GetSchedule returns the worker's schedule entries.
func (s *Service) GetSchedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	entries, err := s.repo.Schedule(ctx, id)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.WorkerSchedule{}
	}
	return entries, nil
}

// SetSchedule replaces the worker's schedule with s and returns the stored entries.
func (s *Service) SetSchedule(ctx context.Context, id string, sched domain.WorkerSchedule) ([]domain.WorkerSchedule, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	entries := []domain.WorkerSchedule{sched.Clone()}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.ReplaceSchedule(ctx, id, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// InsertTask appends tasks the worker does not hold yet, keeping their order.
func (s *Service) InsertTask(ctx context.Context, id string, tasks []string) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if err := domain.ValidateTaskIDs(tasks); err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Modify(ctx, id, func(w *domain.Worker) error {
		for _, t := range tasks {
			if !contains(w.Tasks, t) {
				w.Tasks = append(w.Tasks, t)
			}
		}
		w.TimeLastModified = s.now().UnixMilli()
		return nil
	})
}

// MatchMetadata returns workers whose metadata satisfies f.
func (s *Service) MatchMetadata(ctx context.Context, f metadata.Filter) ([]domain.Worker, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	out := metadata.Select(all, func(w domain.Worker) []metadata.Entry { return w.Metadata }, f)
	if out == nil {
		out = []domain.Worker{}
	}
	return out, nil
}

// ReportTelemetry records what the driver app reports: position, duty and device data.
func (s *Service) ReportTelemetry(ctx context.Context, id string, t domain.Telemetry) (*domain.Worker, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, err
	}
	if t.Location != nil {
		if err := t.Location.Validate(); err != nil {
			return nil, err
		}
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.Modify(ctx, id, func(w *domain.Worker) error {
		if t.OnDuty != nil {
			w.OnDuty = *t.OnDuty
			if !w.OnDuty {
				w.ActiveTask = nil
			}
		}
		if t.ActiveTask != nil {
			switch task := *t.ActiveTask; {
			case task == "":
				w.ActiveTask = nil
			case !w.OnDuty:
				return fmt.Errorf("%w: worker %s is off duty", apperr.Conflict, w.ID)
			case !contains(w.Tasks, task):
				return fmt.Errorf("%w: task %s is not assigned to worker %s", apperr.Invalid, task, w.ID)
			default:
				w.ActiveTask = &task
			}
		}
		if t.Location != nil {
			loc := *t.Location
			w.Location = &loc
		}
		if t.UserData != nil {
			w.UserData = *t.UserData
		}
		if w.AccountStatus == domain.AccountInvited {
			w.AccountStatus = domain.AccountAccepted
		}
		now := s.now().UnixMilli()
		w.TimeLastSeen = now
		w.TimeLastModified = now
		return nil
	})
}

func (s *Service) list(ctx context.Context) ([]domain.Worker, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.repo.List(ctx)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func cloneVehicle(v *domain.Vehicle) *domain.Vehicle {
	if v == nil {
		return nil
	}
	cp := *v
	return &cp
}
