package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/poliscope/core"
	"github.com/poiesic/poliscope/storage"
)

// TaskRepository implements storage.TaskRepository for BadgerDB.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository over the shared backend.
func NewTaskRepository(backend *Backend) *TaskRepository {
	return &TaskRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *TaskRepository) Close() error {
	return nil
}

// Ping delegates to the backend.
func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.backend.Ping(ctx)
}

// WithTransaction delegates to the backend.
func (r *TaskRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateTask persists a new task record.
func (r *TaskRepository) CreateTask(ctx context.Context, task *core.Task) (*core.Task, error) {
	if err := core.ValidateTask(task); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(task.Id)

		if _, err := tx.Get(key); err == nil {
			return storage.ErrDuplicateKey
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		// Microsecond precision matches the value encoding.
		now := time.Now().UTC().Truncate(time.Microsecond)
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		task.UpdatedAt = now

		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// GetTask retrieves a task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.TaskID) (*core.Task, error) {
	var task *core.Task

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTaskKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			task, err = storage.UnmarshalTask(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateTask overwrites an existing task record.
func (r *TaskRepository) UpdateTask(ctx context.Context, task *core.Task) (*core.Task, error) {
	if err := core.ValidateTask(task); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTaskKey(task.Id)

		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}

		task.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

		if err := tx.Set(key, storage.MarshalTask(task)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return task, nil
}
