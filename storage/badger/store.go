package badger

import (
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// Store implements storage.Store and storage.EmbeddingCache on one BadgerDB backend.
type Store struct {
	*TaskRepository
	*SubtaskRepository
	*CacheRepository
	backend *Backend
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.EmbeddingCache = (*Store)(nil)
)

// OpenStore opens (or creates) an on-disk store at path.
func OpenStore(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// NewStore assembles a Store over an open backend. Closing the store closes the backend.
func NewStore(backend *Backend) *Store {
	return &Store{
		TaskRepository:    NewTaskRepository(backend),
		SubtaskRepository: NewSubtaskRepository(backend),
		CacheRepository:   NewCacheRepository(backend),
		backend:           backend,
	}
}

// Backend returns the underlying backend.
func (s *Store) Backend() *Backend {
	return s.backend
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// GetCandidates returns the owner's embedded records of the requested kinds.
// Tasks come before subtasks; each group is in index order.
func (s *Store) GetCandidates(ctx context.Context, ownerID string, kinds []core.Kind) ([]*core.Candidate, error) {
	if ownerID == "" {
		return nil, storage.ErrInvalidQuery
	}
	for _, k := range kinds {
		if err := core.ValidateKind(k); err != nil {
			return nil, err
		}
	}

	var results []*core.Candidate
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if slices.Contains(kinds, core.KindTask) {
			tasks, err := readOwnerTasks(tx, ownerID)
			if err != nil {
				return err
			}
			for _, task := range tasks {
				if len(task.Embedding) > 0 {
					results = append(results, task.Candidate())
				}
			}
		}
		if slices.Contains(kinds, core.KindSubtask) {
			subs, err := readOwnerSubtasks(tx, ownerID)
			if err != nil {
				return err
			}
			for _, sub := range subs {
				if len(sub.Embedding) > 0 {
					results = append(results, sub.Candidate())
				}
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}
