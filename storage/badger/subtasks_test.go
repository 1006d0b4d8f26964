package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubtaskBasics(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Plan trip"))
	require.NoError(t, err)
	parent := added[0].Id
	now := time.Now().UTC()

	first := &core.Subtask{ParentId: parent, OwnerId: "u1", Title: "Book hotel", Status: core.StatusPending, CreatedAt: now.Add(-time.Minute)}
	second := &core.Subtask{ParentId: parent, OwnerId: "u1", Title: "Buy tickets", Status: core.StatusPending, CreatedAt: now}
	_, err = store.AddSubtasks(ctx, second, first)
	require.NoError(t, err)

	subs, err := store.GetSubtasksByParent(ctx, parent)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Book hotel", subs[0].Title)
	assert.Equal(t, "Buy tickets", subs[1].Title)

	got, err := store.GetSubtask(ctx, first.Id)
	require.NoError(t, err)
	assert.Equal(t, parent, got.ParentId)
}

func TestAddSubtasks_MissingParent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AddSubtasks(context.Background(), &core.Subtask{ParentId: "missing", OwnerId: "u1", Title: "orphan", Status: core.StatusPending})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddSubtasks_DuplicateId(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Plan trip"))
	require.NoError(t, err)
	subs, err := store.AddSubtasks(ctx, &core.Subtask{ParentId: added[0].Id, OwnerId: "u1", Title: "Book hotel", Status: core.StatusPending})
	require.NoError(t, err)

	_, err = store.AddSubtasks(ctx, &core.Subtask{Id: subs[0].Id, ParentId: added[0].Id, OwnerId: "u2", Title: "Hijack", Status: core.StatusPending})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetSubtask(ctx, subs[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.OwnerId)
	assert.Equal(t, "Book hotel", got.Title)
}

func TestUpdateAndDeleteSubtask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Plan trip"))
	require.NoError(t, err)
	subs, err := store.AddSubtasks(ctx, &core.Subtask{ParentId: added[0].Id, OwnerId: "u1", Title: "Book hotel", Status: core.StatusPending})
	require.NoError(t, err)
	id := subs[0].Id

	require.NoError(t, store.SetSubtaskEmbedding(ctx, id, []float32{0, 1}, core.HashContent("Book hotel")))

	_, err = store.UpdateSubtasks(ctx, &core.Subtask{Id: id, Title: "Book hostel", Status: core.StatusDone})
	require.NoError(t, err)

	got, err := store.GetSubtask(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Book hostel", got.Title)
	assert.Equal(t, core.StatusDone, got.Status)
	assert.Equal(t, added[0].Id, got.ParentId)
	assert.Equal(t, "u1", got.OwnerId)
	assert.False(t, got.HasFreshEmbedding())

	stale, err := store.GetStaleSubtasks(ctx)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, id, stale[0].Id)

	require.NoError(t, store.DeleteSubtasks(ctx, id))
	_, err = store.GetSubtask(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteSubtasks(ctx, id), storage.ErrNotFound)

	subsLeft, err := store.GetSubtasksByParent(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Empty(t, subsLeft)
}

func TestSetSubtaskEmbedding_ContentChanged(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	added, err := store.AddTasks(ctx, newTask("u1", "Plan trip"))
	require.NoError(t, err)
	subs, err := store.AddSubtasks(ctx, &core.Subtask{ParentId: added[0].Id, OwnerId: "u1", Title: "Book hotel", Status: core.StatusPending})
	require.NoError(t, err)

	err = store.SetSubtaskEmbedding(ctx, subs[0].Id, []float32{1}, core.HashContent("something else"))
	assert.ErrorIs(t, err, storage.ErrContentChanged)

	err = store.SetSubtaskEmbedding(ctx, "missing", []float32{1}, "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
