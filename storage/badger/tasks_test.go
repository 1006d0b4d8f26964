package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTask(owner, title string) *core.Task {
	return &core.Task{OwnerId: owner, Title: title, Priority: core.PriorityMedium, Status: core.StatusPending}
}

func TestTaskBasics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Buy milk"))
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.NotEmpty(t, added[0].Id)
	assert.False(t, added[0].CreatedAt.IsZero())
	assert.Equal(t, added[0].CreatedAt, added[0].UpdatedAt)

	got, err := store.GetTask(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", got.Title)
	assert.Equal(t, "u1", got.OwnerId)
	assert.Nil(t, got.Embedding)

	_, err = store.GetTask(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetTasksByOwner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := newTask("u1", "older")
	older.CreatedAt = now.Add(-time.Hour)
	newer := newTask("u1", "newer")
	newer.CreatedAt = now
	other := newTask("u2", "someone else")

	_, err := store.AddTasks(ctx, older, newer, other)
	require.NoError(t, err)

	tasks, err := store.GetTasksByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "newer", tasks[0].Title)
	assert.Equal(t, "older", tasks[1].Title)

	tasks, err = store.GetTasksByOwner(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestUpdateTasks_PreservesEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Buy milk"))
	require.NoError(t, err)
	id := added[0].Id

	require.NoError(t, store.SetTaskEmbedding(ctx, id, []float32{1, 0}, core.HashContent("Buy milk")))

	edit := &core.Task{Id: id, OwnerId: "intruder", Title: "Buy oat milk", Priority: core.PriorityHigh, Status: core.StatusDone}
	_, err = store.UpdateTasks(ctx, edit)
	require.NoError(t, err)

	got, err := store.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.Equal(t, "u1", got.OwnerId)
	assert.Equal(t, []float32{1, 0}, got.Embedding)
	assert.Equal(t, core.HashContent("Buy milk"), got.ContentHash)
	assert.False(t, got.HasFreshEmbedding())
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	_, err = store.UpdateTasks(ctx, &core.Task{Id: "missing", Title: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateTasks_RacingEmbeddingWrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Buy milk"))
	require.NoError(t, err)
	id := added[0].Id

	// Same transaction body as UpdateTasks, with an embedding write
	// committing between the read and the commit on the first attempt.
	attempts := 0
	edit := &core.Task{Id: id, Title: "Buy oat milk", Priority: core.PriorityMedium, Status: core.StatusInProgress}
	err = store.backend.Update(func(tx *badger.Txn) error {
		attempts++
		if _, err := readTask(tx, id); err != nil {
			return err
		}
		if attempts == 1 {
			require.NoError(t, store.SetTaskEmbedding(ctx, id, []float32{1, 0}, core.HashContent("Buy milk")))
		}
		if err := updateTask(tx, edit, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Commit()
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	got, err := store.GetTask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", got.Title)
	assert.Equal(t, core.StatusInProgress, got.Status)
	assert.Equal(t, []float32{1, 0}, got.Embedding)
	assert.False(t, got.HasFreshEmbedding())
}

func TestAddTasks_DuplicateId(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Buy milk"))
	require.NoError(t, err)

	dup := newTask("u2", "Take over")
	dup.Id = added[0].Id
	_, err = store.AddTasks(ctx, dup)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetTask(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerId)
	assert.Equal(t, "Buy milk", got.Title)

	tasks, err := store.GetTasksByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, tasks)

	chosen := newTask("u1", "Chosen id")
	chosen.Id = "task-1"
	_, err = store.AddTasks(ctx, chosen)
	require.NoError(t, err)
}

func TestSetTaskEmbedding(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Buy milk"))
	require.NoError(t, err)
	id := added[0].Id

	t.Run("hash of a different title is rejected", func(t *testing.T) {
		err := store.SetTaskEmbedding(ctx, id, []float32{1, 0}, core.HashContent("Buy bread"))
		assert.ErrorIs(t, err, storage.ErrContentChanged)

		got, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Embedding)
		assert.Empty(t, got.ContentHash)
	})

	t.Run("matching hash is stored with the vector", func(t *testing.T) {
		require.NoError(t, store.SetTaskEmbedding(ctx, id, []float32{0.6, 0.8}, core.HashContent("Buy milk")))

		got, err := store.GetTask(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.6, 0.8}, got.Embedding)
		assert.True(t, got.HasFreshEmbedding())
	})

	t.Run("missing task", func(t *testing.T) {
		err := store.SetTaskEmbedding(ctx, "missing", []float32{1}, "x")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestGetStaleTasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx,
		newTask("u1", "fresh"),
		newTask("u1", "never embedded"),
		newTask("u2", "edited"),
	)
	require.NoError(t, err)

	require.NoError(t, store.SetTaskEmbedding(ctx, added[0].Id, []float32{1}, core.HashContent("fresh")))
	require.NoError(t, store.SetTaskEmbedding(ctx, added[2].Id, []float32{1}, core.HashContent("edited")))
	added[2].Title = "edited again"
	_, err = store.UpdateTasks(ctx, added[2])
	require.NoError(t, err)

	stale, err := store.GetStaleTasks(ctx)
	require.NoError(t, err)

	titles := make([]string, len(stale))
	for i, task := range stale {
		titles[i] = task.Title
	}
	assert.ElementsMatch(t, []string{"never embedded", "edited again"}, titles)
}

func TestDeleteTasks_CascadesToSubtasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Plan trip"))
	require.NoError(t, err)
	parent := added[0].Id

	subs, err := store.AddSubtasks(ctx,
		&core.Subtask{ParentId: parent, OwnerId: "u1", Title: "Book hotel", Status: core.StatusPending},
		&core.Subtask{ParentId: parent, OwnerId: "u1", Title: "Buy tickets", Status: core.StatusPending},
	)
	require.NoError(t, err)

	require.NoError(t, store.DeleteTasks(ctx, parent))

	_, err = store.GetTask(ctx, parent)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	for _, sub := range subs {
		_, err = store.GetSubtask(ctx, sub.Id)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}

	remaining, err := store.GetSubtasksByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	assert.ErrorIs(t, store.DeleteTasks(ctx, parent), storage.ErrNotFound)
}
