package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// SubtaskRepository implements storage.SubtaskRepository for BadgerDB.
type SubtaskRepository struct {
	backend *Backend
}

var _ storage.SubtaskRepository = (*SubtaskRepository)(nil)

// NewSubtaskRepository creates a new SubtaskRepository.
func NewSubtaskRepository(backend *Backend) *SubtaskRepository {
	return &SubtaskRepository{backend: backend}
}

// Close is a no-op; the backend owns the database.
func (r *SubtaskRepository) Close() error {
	return nil
}

// AddSubtasks adds one or more subtasks to storage.
// A subtask whose Id is already stored is rejected with storage.ErrDuplicateKey.
func (r *SubtaskRepository) AddSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error) {
	err := r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, sub := range subtasks {
			parent, err := readTask(tx, sub.ParentId)
			if err != nil {
				return err
			}
			if parent == nil {
				return storage.ErrNotFound
			}

			if sub.Id == "" {
				sub.Id = core.ID(uuid.NewString())
			} else if err := checkAbsent(tx, makeSubtaskKey(sub.Id)); err != nil {
				return err
			}
			if sub.CreatedAt.IsZero() {
				sub.CreatedAt = now
			}
			sub.UpdatedAt = sub.CreatedAt

			if err := tx.Set(makeSubtaskKey(sub.Id), storage.MarshalSubtask(sub)); err != nil {
				return err
			}
			if err := tx.Set(makeSubtaskOwnerKey(sub.OwnerId, sub.Id), []byte(sub.Id)); err != nil {
				return err
			}
			if err := tx.Set(makeSubtaskParentKey(sub.ParentId, sub.Id), []byte(sub.Id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return subtasks, err
}

// UpdateSubtasks updates the editable fields of existing subtasks.
func (r *SubtaskRepository) UpdateSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error) {
	err := r.backend.Update(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, sub := range subtasks {
			old, err := readSubtask(tx, sub.Id)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			sub.ParentId = old.ParentId
			sub.OwnerId = old.OwnerId
			sub.CreatedAt = old.CreatedAt
			sub.Embedding = old.Embedding
			sub.ContentHash = old.ContentHash
			sub.UpdatedAt = now

			if err := tx.Set(makeSubtaskKey(sub.Id), storage.MarshalSubtask(sub)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})

	return subtasks, err
}

// DeleteSubtasks removes subtasks by their IDs.
func (r *SubtaskRepository) DeleteSubtasks(ctx context.Context, ids ...core.ID) error {
	return r.backend.Update(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := deleteSubtask(tx, id); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// GetSubtask retrieves a single subtask by ID.
func (r *SubtaskRepository) GetSubtask(ctx context.Context, id core.ID) (*core.Subtask, error) {
	var result *core.Subtask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readSubtask(tx, id)
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

// GetSubtasksByParent returns the subtasks of a task, oldest first.
func (r *SubtaskRepository) GetSubtasksByParent(ctx context.Context, parentID core.ID) ([]*core.Subtask, error) {
	var results []*core.Subtask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		ids, err := scanIDs(tx, makeScopePrefix(subtaskParentPrefix, string(parentID)))
		if err != nil {
			return err
		}
		for _, id := range ids {
			sub, err := readSubtask(tx, id)
			if err != nil {
				return err
			}
			if sub != nil && sub.ParentId == parentID {
				results = append(results, sub)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortSubtasksOldestFirst(results)
	return results, nil
}

// GetSubtasksByOwner returns the owner's subtasks, oldest first.
func (r *SubtaskRepository) GetSubtasksByOwner(ctx context.Context, ownerID string) ([]*core.Subtask, error) {
	var results []*core.Subtask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readOwnerSubtasks(tx, ownerID)
		return err
	}, false)
	if err != nil {
		return nil, err
	}

	sortSubtasksOldestFirst(results)
	return results, nil
}

// GetStaleSubtasks returns subtasks whose embedding is missing or stale, oldest first.
func (r *SubtaskRepository) GetStaleSubtasks(ctx context.Context) ([]*core.Subtask, error) {
	var results []*core.Subtask
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(subtaskPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var sub *core.Subtask
			err := iter.Item().Value(func(val []byte) error {
				var err error
				sub, err = storage.UnmarshalSubtask(val)
				return err
			})
			if err != nil {
				return err
			}
			if !sub.HasFreshEmbedding() {
				results = append(results, sub)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	sortSubtasksOldestFirst(results)
	return results, nil
}

// SetSubtaskEmbedding stores vector and hash if hash still matches the subtask's title.
func (r *SubtaskRepository) SetSubtaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error {
	return embeddingWrite(r.backend, func(tx *badger.Txn) error {
		sub, err := readSubtask(tx, id)
		if err != nil {
			return err
		}
		if sub == nil {
			return storage.ErrNotFound
		}
		if core.HashContent(sub.Title) != hash {
			return storage.ErrContentChanged
		}

		sub.Embedding = slices.Clone(vector)
		sub.ContentHash = hash
		if err := tx.Set(makeSubtaskKey(id), storage.MarshalSubtask(sub)); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// Helper functions

// readSubtask reads a subtask from the transaction. Returns nil if it doesn't exist.
func readSubtask(tx *badger.Txn, id core.ID) (*core.Subtask, error) {
	item, err := tx.Get(makeSubtaskKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var sub *core.Subtask
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		sub, unmarshalErr = storage.UnmarshalSubtask(val)
		return unmarshalErr
	})
	return sub, err
}

// readOwnerSubtasks loads every subtask indexed under owner.
func readOwnerSubtasks(tx *badger.Txn, owner string) ([]*core.Subtask, error) {
	ids, err := scanIDs(tx, makeScopePrefix(subtaskOwnerPrefix, owner))
	if err != nil {
		return nil, err
	}
	subs := make([]*core.Subtask, 0, len(ids))
	for _, id := range ids {
		sub, err := readSubtask(tx, id)
		if err != nil {
			return nil, err
		}
		if sub != nil && sub.OwnerId == owner {
			subs = append(subs, sub)
		}
	}
	return subs, nil
}

// deleteSubtask removes a subtask and its index entries.
func deleteSubtask(tx *badger.Txn, id core.ID) error {
	sub, err := readSubtask(tx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return storage.ErrNotFound
	}
	if err := tx.Delete(makeSubtaskOwnerKey(sub.OwnerId, id)); err != nil {
		return err
	}
	if err := tx.Delete(makeSubtaskParentKey(sub.ParentId, id)); err != nil {
		return err
	}
	return tx.Delete(makeSubtaskKey(id))
}

func sortSubtasksOldestFirst(subs []*core.Subtask) {
	slices.SortFunc(subs, func(a, b *core.Subtask) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(string(a.Id), string(b.Id))
	})
}
