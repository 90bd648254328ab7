package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
)

// WorkerRepo stores workers as JSONB documents.
type WorkerRepo struct{ db *pgxpool.Pool }

// NewWorkerRepo creates a new WorkerRepo.
func NewWorkerRepo(db *pgxpool.Pool) *WorkerRepo { return &WorkerRepo{db: db} }

// Create - inserts a new worker; a duplicate phone or id is apperr.Conflict.
func (r *WorkerRepo) Create(ctx context.Context, w *domain.Worker) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("create worker: encode: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO workers(id, phone, time_created, doc) VALUES($1,$2,$3,$4)`,
		w.ID, w.Phone, w.TimeCreated, doc)
	if err != nil {
		if IsDuplicate(err) {
			return fmt.Errorf("%w: phone %s is already in use", apperr.Conflict, w.Phone)
		}
		return fmt.Errorf("create worker: %w", err)
	}
	return nil
}

// Get - returns worker by its ID.
func (r *WorkerRepo) Get(ctx context.Context, id string) (*domain.Worker, error) {
	var doc []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM workers WHERE id=$1`, id).Scan(&doc)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: worker %s", apperr.NotFound, id)
		}
		return nil, fmt.Errorf("get worker %s: %w", id, err)
	}
	return decodeWorker(doc)
}

// List returns all workers ordered by creation time.
func (r *WorkerRepo) List(ctx context.Context) ([]domain.Worker, error) {
	rows, err := r.db.Query(ctx, `SELECT doc FROM workers ORDER BY time_created, id`)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Worker, 0)
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		w, err := decodeWorker(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Modify locks the row, applies fn and writes the document back.
func (r *WorkerRepo) Modify(ctx context.Context, id string, fn func(*domain.Worker) error) (*domain.Worker, error) {
	var out *domain.Worker
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		w, err := lockWorker(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(w); err != nil {
			return err
		}
		w.ID = id
		doc, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("modify worker: encode: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE workers SET phone=$2, doc=$3 WHERE id=$1`, id, w.Phone, doc); err != nil {
			if IsDuplicate(err) {
				return fmt.Errorf("%w: phone %s is already in use", apperr.Conflict, w.Phone)
			}
			return fmt.Errorf("modify worker %s: %w", id, err)
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the worker when check accepts it. Schedules go with it.
func (r *WorkerRepo) Delete(ctx context.Context, id string, check func(*domain.Worker) error) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		w, err := lockWorker(ctx, tx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(w); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `DELETE FROM workers WHERE id=$1`, id); err != nil {
			return fmt.Errorf("delete worker %s: %w", id, err)
		}
		return nil
	})
}

// Schedule returns schedule entries in the order they were stored.
func (r *WorkerRepo) Schedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workers WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: worker %s", apperr.NotFound, id)
	}

	rows, err := r.db.Query(ctx,
		`SELECT date, timezone, shifts FROM worker_schedules WHERE worker_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", id, err)
	}
	defer rows.Close()

	out := make([]domain.WorkerSchedule, 0)
	for rows.Next() {
		var (
			s      domain.WorkerSchedule
			shifts []byte
		)
		if err := rows.Scan(&s.Date, &s.Timezone, &shifts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(shifts, &s.Shifts); err != nil {
			return nil, fmt.Errorf("get schedule %s: decode shifts: %w", id, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ReplaceSchedule swaps the worker's schedule rows for entries.
func (r *WorkerRepo) ReplaceSchedule(ctx context.Context, id string, entries []domain.WorkerSchedule) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := lockWorker(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM worker_schedules WHERE worker_id=$1`, id); err != nil {
			return fmt.Errorf("replace schedule %s: %w", id, err)
		}
		batch := &pgx.Batch{}
		for i, e := range entries {
			shifts, err := json.Marshal(e.Shifts)
			if err != nil {
				return fmt.Errorf("replace schedule %s: encode shifts: %w", id, err)
			}
			batch.Queue(`INSERT INTO worker_schedules(worker_id, position, date, timezone, shifts) VALUES($1,$2,$3,$4,$5)`,
				id, i, e.Date, e.Timezone, shifts)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("replace schedule %s: %w", id, err)
		}
		return nil
	})
}

// Ping checks connectivity.
func (r *WorkerRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func lockWorker(ctx context.Context, tx pgx.Tx, id string) (*domain.Worker, error) {
	var doc []byte
	err := tx.QueryRow(ctx, `SELECT doc FROM workers WHERE id=$1 FOR UPDATE`, id).Scan(&doc)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: worker %s", apperr.NotFound, id)
		}
		return nil, fmt.Errorf("lock worker %s: %w", id, err)
	}
	return decodeWorker(doc)
}

func decodeWorker(doc []byte) (*domain.Worker, error) {
	var w domain.Worker
	if err := json.Unmarshal(doc, &w); err != nil {
		return nil, fmt.Errorf("decode worker: %w", err)
	}
	return &w, nil
}
