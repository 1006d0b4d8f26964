package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// TaskRepository implements storage.TaskRepository for BadgerDB.
type TaskRepository struct {
	backend *Backend
}

var _ storage.TaskRepository = (*TaskRepository)(nil)

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(backend *Backend) *TaskRepository {
	return &TaskRepository{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (r *TaskRepository) Close() error {
	return nil
}

// AddTasks adds one or more tasks to storage.
// A task whose Id is already stored is rejected with storage.ErrDuplicateKey.
func (r *TaskRepository) AddTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error) {
	err := r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, task := range tasks {
			if task.Id == "" {
				task.Id = core.ID(uuid.NewString())
			} else if err := checkAbsent(tx, makeTaskKey(task.Id)); err != nil {
				return err
			}
			if task.CreatedAt.IsZero() {
				task.CreatedAt = now
			}
			task.UpdatedAt = task.CreatedAt

			if err := tx.Set(makeTaskKey(task.Id), storage.MarshalTask(task)); err != nil {
				return err
			}
			if err := tx.Set(makeTaskOwnerKey(task.OwnerId, task.Id), []byte(task.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return tasks, err
}

// UpdateTasks updates the editable fields of existing tasks.
func (r *TaskRepository) UpdateTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error) {
	err := r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, task := range tasks {
			if err := updateTask(tx, task, now); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return tasks, err
}

// DeleteTasks removes tasks and their subtasks.
func (r *TaskRepository) DeleteTasks(ctx context.Context, ids ...core.ID) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		for _, id := range ids {
			task, err := readTask(tx, id)
			if err != nil {
				return err
			}
			if task == nil {
				return storage.ErrNotFound
			}

			childIDs, err := scanIDs(tx, makeScopePrefix(subtaskParentPrefix, string(id)))
			if err != nil {
				return err
			}
			for _, childID := range childIDs {
				if err := deleteSubtask(tx, childID); err != nil {
					return err
				}
			}

			if err := tx.Delete(makeTaskOwnerKey(task.OwnerId, id)); err != nil {
				return err
			}
			if err := tx.Delete(makeTaskKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// GetTask retrieves a single task by ID.
func (r *TaskRepository) GetTask(ctx context.Context, id core.ID) (*core.Task, error) {
	var result *core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readTask(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetTasksByOwner returns the owner's tasks, newest first.
func (r *TaskRepository) GetTasksByOwner(ctx context.Context, ownerID string) ([]*core.Task, error) {
	var results []*core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readOwnerTasks(tx, ownerID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Task) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.Id), string(b.Id))
	})
	return results, nil
}

// GetStaleTasks returns tasks whose embedding is missing or stale, oldest first.
func (r *TaskRepository) GetStaleTasks(ctx context.Context) ([]*core.Task, error) {
	var results []*core.Task
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(taskPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var task *core.Task
			err := iter.Item().Value(func(val []byte) error {
				var err error
				task, err = storage.UnmarshalTask(val)
				return err
			})
			if err != nil {
				return err
			}
			if !task.HasFreshEmbedding() {
				results = append(results, task)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Task) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.Id), string(b.Id))
	})
	return results, nil
}

// SetTaskEmbedding stores vector and hash if hash still matches the task's title.
func (r *TaskRepository) SetTaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error {
	return embeddingWrite(r.backend, func(tx *badger.Txn) error {
		task, err := readTask(tx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return storage.ErrNotFound
		}
		if core.HashContent(task.Title) != hash {
			return storage.ErrContentChanged
		}

		task.Embedding = slices.Clone(vector)
		task.ContentHash = hash
		if err := tx.Set(makeTaskKey(id), storage.MarshalTask(task)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Helper functions

// updateTask overwrites the editable fields of the stored task with task's
// and fills the rest of task from the stored copy.
func updateTask(tx *badger.Txn, task *core.Task, now time.Time) error {
	old, err := readTask(tx, task.Id)
	if err != nil {
		return err
	}
	if old == nil {
		return storage.ErrNotFound
	}

	task.OwnerId = old.OwnerId
	task.CreatedAt = old.CreatedAt
	task.Embedding = old.Embedding
	task.ContentHash = old.ContentHash
	task.UpdatedAt = now

	return tx.Set(makeTaskKey(task.Id), storage.MarshalTask(task))
}

// embeddingWrite runs an embedding write. A conflict that outlasts the
// retries means the record kept changing underneath the write, which is
// reported the same way as a title that no longer matches.
func embeddingWrite(backend *Backend, fn func(tx *badger.Txn) error) error {
	err := backend.Update(fn)
	if errors.Is(err, storage.ErrConflict) {
		return fmt.Errorf("%w: %w", storage.ErrContentChanged, err)
	}
	return err
}

// checkAbsent returns storage.ErrDuplicateKey if key is already stored.
func checkAbsent(tx *badger.Txn, key []byte) error {
	_, err := tx.Get(key)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, key)
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil
	}
	return err
}

// readTask reads a task from the transaction. Returns nil if it doesn't exist.
func readTask(tx *badger.Txn, id core.ID) (*core.Task, error) {
	item, err := tx.Get(makeTaskKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var task *core.Task
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		task, unmarshalErr = storage.UnmarshalTask(val)
		return unmarshalErr
	})
	return task, err
}

// readOwnerTasks loads every task indexed under owner.
// Records whose stored owner disagrees with the index are skipped.
func readOwnerTasks(tx *badger.Txn, owner string) ([]*core.Task, error) {
	ids, err := scanIDs(tx, makeScopePrefix(taskOwnerPrefix, owner))
	if err != nil {
		return nil, err
	}
	tasks := make([]*core.Task, 0, len(ids))
	for _, id := range ids {
		task, err := readTask(tx, id)
		if err != nil {
			return nil, err
		}
		if task != nil && task.OwnerId == owner {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// scanIDs returns the record ids stored as values under an index prefix.
func scanIDs(tx *badger.Txn, prefix []byte) ([]core.ID, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var ids []core.ID
	for iter.Rewind(); iter.Valid(); iter.Next() {
		val, err := iter.Item().ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		ids = append(ids, core.ID(val))
	}
	return ids, nil
}
