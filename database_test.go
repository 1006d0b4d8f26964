package tasklens

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/tasklens/ai/cached"
	"github.com/poiesic/tasklens/ai/mock"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage/badger"
	"github.com/poiesic/tasklens/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.provider)
		assert.IsType(t, &badger.Store{}, db.Store())
		assert.IsType(t, &cached.Embedder{}, db.Embedder())
	})

	t.Run("without cache", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		db, err := NewDatabase(t.TempDir(), WithEmbedder(embedder), WithoutEmbeddingCache(), WithLogger(nil))
		require.NoError(t, err)
		defer db.Close()

		assert.Nil(t, db.provider)
		assert.Same(t, embedder, db.Embedder())
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_EndToEnd(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	db, err := NewDatabase(t.TempDir(), WithEmbedder(embedder))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	svc, err := db.NewTaskService(tasks.WithSyncEmbedding())
	require.NoError(t, err)
	task, err := svc.CreateTask(ctx, "u1", "Buy milk", core.PriorityLow)
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, "u2", "Buy milk", core.PriorityLow)
	require.NoError(t, err)
	svc.Release()

	backfiller, err := db.NewBackfiller(nil)
	require.NoError(t, err)
	result, err := backfiller.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Total, "task service already embedded everything")

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	results, err := searcher.Search(ctx, "Buy milk", "u1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, task.Id, results[0].Candidate.Id)

	// Query and both titles are the same text, so the cache served all but one.
	assert.Equal(t, 1, embedder.CallCount())
}
