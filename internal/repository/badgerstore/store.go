// Package badgerstore keeps sandbox workers in an embedded badger database.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/domain"
)

const (
	workerPrefix   = "w|"
	phonePrefix    = "p|"
	schedulePrefix = "s|"

	// optimistic transactions are replayed this many times on conflict
	maxTxnAttempts = 5
)

// Store is a badger-backed worker repository.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a store in dir. An empty dir keeps everything in memory.
func Open(dir string, syncWrites bool) (*Store, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir).WithSyncWrites(syncWrites)
	}
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func workerKey(id string) []byte   { return []byte(workerPrefix + id) }
func phoneKey(phone string) []byte { return []byte(phonePrefix + phone) }
func scheduleKey(id string) []byte { return []byte(schedulePrefix + id) }

// Create stores w and reserves its phone number.
func (s *Store) Create(ctx context.Context, w *domain.Worker) error {
	doc, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("badgerstore: encode worker: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(phoneKey(w.Phone)); err == nil {
			return fmt.Errorf("%w: phone %s is already in use", apperr.Conflict, w.Phone)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if _, err := txn.Get(workerKey(w.ID)); err == nil {
			return fmt.Errorf("%w: worker %s already exists", apperr.Conflict, w.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(workerKey(w.ID), doc); err != nil {
			return err
		}
		return txn.Set(phoneKey(w.Phone), []byte(w.ID))
	})
}

// Get loads a worker by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var w *domain.Worker
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		w, err = getWorker(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

// List returns every worker ordered by creation time.
func (s *Store) List(ctx context.Context) ([]domain.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Worker, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(workerPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var w domain.Worker
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &w)
			}); err != nil {
				return fmt.Errorf("badgerstore: decode %q: %w", it.Item().Key(), err)
			}
			out = append(out, w)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TimeCreated != out[j].TimeCreated {
			return out[i].TimeCreated < out[j].TimeCreated
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Modify applies fn to the stored worker inside one transaction.
func (s *Store) Modify(ctx context.Context, id string, fn func(*domain.Worker) error) (*domain.Worker, error) {
	var out *domain.Worker
	err := s.update(ctx, func(txn *badger.Txn) error {
		w, err := getWorker(txn, id)
		if err != nil {
			return err
		}
		oldPhone := w.Phone
		if err := fn(w); err != nil {
			return err
		}
		w.ID = id
		if w.Phone != oldPhone {
			if _, err := txn.Get(phoneKey(w.Phone)); err == nil {
				return fmt.Errorf("%w: phone %s is already in use", apperr.Conflict, w.Phone)
			}
			if err := txn.Delete(phoneKey(oldPhone)); err != nil {
				return err
			}
			if err := txn.Set(phoneKey(w.Phone), []byte(id)); err != nil {
				return err
			}
		}
		doc, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("badgerstore: encode worker: %w", err)
		}
		if err := txn.Set(workerKey(id), doc); err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the worker, its phone reservation and its schedule.
func (s *Store) Delete(ctx context.Context, id string, check func(*domain.Worker) error) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		w, err := getWorker(txn, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(w); err != nil {
				return err
			}
		}
		for _, k := range [][]byte{workerKey(id), phoneKey(w.Phone), scheduleKey(id)} {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Schedule returns the stored schedule entries of a worker.
func (s *Store) Schedule(ctx context.Context, id string) ([]domain.WorkerSchedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.WorkerSchedule
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(workerKey(id)); err != nil {
			return notFound(err, id)
		}
		item, err := txn.Get(scheduleKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceSchedule overwrites the schedule of a worker.
func (s *Store) ReplaceSchedule(ctx context.Context, id string, entries []domain.WorkerSchedule) error {
	doc, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("badgerstore: encode schedule: %w", err)
	}
	return s.update(ctx, func(txn *badger.Txn) error {
		if _, err := txn.Get(workerKey(id)); err != nil {
			return notFound(err, id)
		}
		return txn.Set(scheduleKey(id), doc)
	})
}

// Ping checks the database is open.
func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badgerstore: database is closed")
	}
	return nil
}

func (s *Store) update(ctx context.Context, fn func(*badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxTxnAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("badgerstore: %w: transaction conflict", apperr.Unavailable)
}

func getWorker(txn *badger.Txn, id string) (*domain.Worker, error) {
	item, err := txn.Get(workerKey(id))
	if err != nil {
		return nil, notFound(err, id)
	}
	var w domain.Worker
	if err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &w)
	}); err != nil {
		return nil, fmt.Errorf("badgerstore: decode worker %s: %w", id, err)
	}
	return &w, nil
}

func notFound(err error, id string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: worker %s", apperr.NotFound, id)
	}
	return err
}
