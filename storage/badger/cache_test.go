package badger

import (
	"context"
	"testing"

	"github.com/poiesic/tasklens/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetEmbedding(ctx, "m", "buy milk")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.PutEmbedding(ctx, "m", "buy milk", []float32{0.1, 0.2}))

	vector, err := store.GetEmbedding(ctx, "m", "buy milk")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)

	_, err = store.GetEmbedding(ctx, "other-model", "buy milk")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetEmbedding(ctx, "m", "Buy milk")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
