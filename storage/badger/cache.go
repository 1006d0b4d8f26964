package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// CacheRepository implements storage.EmbeddingCache for BadgerDB.
// Entries are keyed by a BLAKE2b digest of model and text; the stored
// model and text are compared on read so a digest collision is a miss.
type CacheRepository struct {
	backend *Backend
}

var _ storage.EmbeddingCache = (*CacheRepository)(nil)

// NewCacheRepository creates a new CacheRepository.
func NewCacheRepository(backend *Backend) *CacheRepository {
	return &CacheRepository{backend: backend}
}

// GetEmbedding returns the cached vector for (model, text).
func (r *CacheRepository) GetEmbedding(ctx context.Context, model, text string) ([]float32, error) {
	var entry *core.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(model, text))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			entry, err = storage.UnmarshalCacheEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	if entry.Model != model || entry.Text != text || len(entry.Embedding) == 0 {
		return nil, storage.ErrNotFound
	}
	return entry.Embedding, nil
}

// PutEmbedding stores vector for (model, text).
func (r *CacheRepository) PutEmbedding(ctx context.Context, model, text string, vector []float32) error {
	entry := &core.CacheEntry{
		Model:     model,
		Text:      text,
		Embedding: slices.Clone(vector),
		CreatedAt: time.Now().UTC(),
	}
	return r.backend.Update(func(tx *badger.Txn) error {
		if err := tx.Set(makeEmbeddingKey(model, text), storage.MarshalCacheEntry(entry)); err != nil {
			return err
		}
		return tx.Commit()
	})
}
