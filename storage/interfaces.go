package storage

import (
	"context"

	"github.com/poiesic/tasklens/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases resources held by the repository.
	Close() error
}

// TaskRepository provides operations for managing tasks.
type TaskRepository interface {
	Repository
	// AddTasks adds one or more tasks to storage.
	// Tasks with an empty Id get a new random UUID.
	// Sets CreatedAt if not already set and UpdatedAt to CreatedAt.
	// Returns the tasks with ids and timestamps populated, or
	// ErrDuplicateKey if a supplied Id is already stored.
	AddTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error)

	// UpdateTasks updates the editable fields (Title, Priority, Status) of
	// existing tasks and refreshes UpdatedAt. OwnerId, CreatedAt, Embedding
	// and ContentHash keep their stored values; embeddings change only
	// through SetTaskEmbedding.
	// Returns ErrNotFound if any task doesn't exist.
	UpdateTasks(ctx context.Context, tasks ...*core.Task) ([]*core.Task, error)

	// DeleteTasks removes tasks and all of their subtasks.
	// Returns ErrNotFound if any task doesn't exist.
	DeleteTasks(ctx context.Context, ids ...core.ID) error

	// GetTask retrieves a single task by ID.
	// Returns ErrNotFound if the task doesn't exist.
	GetTask(ctx context.Context, id core.ID) (*core.Task, error)

	// GetTasksByOwner returns every task owned by ownerID, newest first.
	GetTasksByOwner(ctx context.Context, ownerID string) ([]*core.Task, error)

	// GetStaleTasks returns tasks of every owner whose embedding is missing
	// or was computed from a different title, oldest first.
	GetStaleTasks(ctx context.Context) ([]*core.Task, error)

	// SetTaskEmbedding stores vector and hash together in one transaction.
	// Returns ErrContentChanged if the task's current title does not hash to
	// hash, or if a concurrent write touched the task. Returns ErrNotFound if
	// the task doesn't exist.
	SetTaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error
}

// SubtaskRepository provides operations for managing subtasks.
type SubtaskRepository interface {
	Repository
	// AddSubtasks adds one or more subtasks to storage.
	// Returns ErrNotFound if a parent task doesn't exist and
	// ErrDuplicateKey if a supplied Id is already stored.
	AddSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error)

	// UpdateSubtasks updates the editable fields (Title, Status) of existing
	// subtasks and refreshes UpdatedAt.
	// Returns ErrNotFound if any subtask doesn't exist.
	UpdateSubtasks(ctx context.Context, subtasks ...*core.Subtask) ([]*core.Subtask, error)

	// DeleteSubtasks removes subtasks by their IDs.
	// Returns ErrNotFound if any subtask doesn't exist.
	DeleteSubtasks(ctx context.Context, ids ...core.ID) error

	// GetSubtask retrieves a single subtask by ID.
	// Returns ErrNotFound if the subtask doesn't exist.
	GetSubtask(ctx context.Context, id core.ID) (*core.Subtask, error)

	// GetSubtasksByParent returns the subtasks of a task, oldest first.
	GetSubtasksByParent(ctx context.Context, parentID core.ID) ([]*core.Subtask, error)

	// GetSubtasksByOwner returns every subtask owned by ownerID, oldest first.
	GetSubtasksByOwner(ctx context.Context, ownerID string) ([]*core.Subtask, error)

	// GetStaleSubtasks returns subtasks whose embedding is missing or stale, oldest first.
	GetStaleSubtasks(ctx context.Context) ([]*core.Subtask, error)

	// SetSubtaskEmbedding is the subtask counterpart of SetTaskEmbedding.
	SetSubtaskEmbedding(ctx context.Context, id core.ID, vector []float32, hash string) error
}

// CandidateSource supplies search candidates for a single owner.
type CandidateSource interface {
	// GetCandidates returns the owner's records of the given kinds that
	// carry a non-empty embedding. Freshness is not checked here.
	GetCandidates(ctx context.Context, ownerID string, kinds []core.Kind) ([]*core.Candidate, error)
}

// VectorSearcher is implemented by backends that rank inside the database.
// Results must honor the same contract as similarity.Rank: fresh embeddings
// only, similarity >= minSimilarity, ordered by similarity descending then
// UpdatedAt descending then Id ascending, at most limit results (limit <= 0
// means unlimited).
type VectorSearcher interface {
	FindSimilar(ctx context.Context, ownerID string, kinds []core.Kind, vector []float32, minSimilarity float64, limit int) ([]*core.SearchResult, error)
}

// EmbeddingCache memoizes embeddings per model and exact text.
type EmbeddingCache interface {
	// GetEmbedding returns the cached vector for (model, text).
	// Returns ErrNotFound on a miss.
	GetEmbedding(ctx context.Context, model, text string) ([]float32, error)

	// PutEmbedding stores vector for (model, text).
	PutEmbedding(ctx context.Context, model, text string, vector []float32) error
}

// Store bundles everything search, backfill and the task service need.
type Store interface {
	TaskRepository
	SubtaskRepository
	CandidateSource
}
