package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/backfill"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// Service manages a user's tasks and subtasks and keeps their embeddings
// current.
//
// Creating a record or changing its title schedules an embedding job on a
// worker pool. The job is best-effort: failures are logged and the record
// stays stale until the next backfill run.
type Service struct {
	store         storage.Store
	updater       *backfill.Updater
	pool          *ants.Pool
	poolSize      int
	syncEmbedding bool
	embedConfig   *backfill.Config
	jobs          sync.WaitGroup
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*Service) error

// WithPoolSize sets the worker pool size for embedding jobs.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Service) error {
		if size < 1 {
			size = 1
		}
		s.poolSize = size
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithSyncEmbedding embeds new and retitled records before returning
// instead of on the worker pool. Embedding errors are still only logged.
func WithSyncEmbedding() Option {
	return func(s *Service) error {
		s.syncEmbedding = true
		return nil
	}
}

// WithEmbedConfig sets the retry and normalization settings used by
// embedding jobs. Default is backfill.DefaultConfig().
func WithEmbedConfig(config *backfill.Config) Option {
	return func(s *Service) error {
		s.embedConfig = config
		return nil
	}
}

// NewService creates a new task service.
func NewService(store storage.Store, embedder ai.Embedder, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	s := &Service{
		store:    store,
		poolSize: poolSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "tasks")

	updater, err := backfill.NewUpdater(store, embedder, s.embedConfig, s.logger)
	if err != nil {
		return nil, err
	}
	s.updater = updater

	if !s.syncEmbedding {
		pool, err := ants.NewPool(s.poolSize)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}

	return s, nil
}

// TaskPatch lists the task fields to change. Nil fields are left alone.
type TaskPatch struct {
	Title    *string
	Status   *core.Status
	Priority *core.Priority
}

// SubtaskPatch lists the subtask fields to change. Nil fields are left alone.
type SubtaskPatch struct {
	Title  *string
	Status *core.Status
}

// CreateTask stores a new pending task. An empty priority means medium.
func (s *Service) CreateTask(ctx context.Context, owner, title string, priority core.Priority) (*core.Task, error) {
	if priority == "" {
		priority = core.PriorityMedium
	}
	task := &core.Task{
		OwnerId:  owner,
		Title:    strings.TrimSpace(title),
		Priority: priority,
		Status:   core.StatusPending,
	}
	if err := core.ValidateTask(task); err != nil {
		return nil, invalid(err)
	}

	added, err := s.store.AddTasks(ctx, task)
	if err != nil {
		return nil, err
	}
	s.embed(added[0].Ref())
	return added[0], nil
}

// ListTasks returns owner's tasks, newest first.
func (s *Service) ListTasks(ctx context.Context, owner string) ([]*core.Task, error) {
	if owner == "" {
		return nil, invalid(core.ErrEmptyOwner)
	}
	return s.store.GetTasksByOwner(ctx, owner)
}

// GetTask returns one of owner's tasks.
// A task owned by someone else is reported as storage.ErrNotFound.
func (s *Service) GetTask(ctx context.Context, owner string, id core.ID) (*core.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.OwnerId != owner {
		return nil, storage.ErrNotFound
	}
	return task, nil
}

// UpdateTask applies patch to one of owner's tasks.
func (s *Service) UpdateTask(ctx context.Context, owner string, id core.ID, patch TaskPatch) (*core.Task, error) {
	task, err := s.GetTask(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	retitled := false
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		retitled = title != task.Title
		task.Title = title
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if err := core.ValidateTask(task); err != nil {
		return nil, invalid(err)
	}

	updated, err := s.store.UpdateTasks(ctx, task)
	if err != nil {
		return nil, err
	}
	if retitled {
		s.embed(task.Ref())
	}
	return updated[0], nil
}

// DeleteTask removes one of owner's tasks and its subtasks.
func (s *Service) DeleteTask(ctx context.Context, owner string, id core.ID) error {
	if _, err := s.GetTask(ctx, owner, id); err != nil {
		return err
	}
	return s.store.DeleteTasks(ctx, id)
}

// CreateSubtask adds a pending subtask under one of owner's tasks.
func (s *Service) CreateSubtask(ctx context.Context, owner string, parentID core.ID, title string) (*core.Subtask, error) {
	sub := &core.Subtask{
		ParentId: parentID,
		OwnerId:  owner,
		Title:    strings.TrimSpace(title),
		Status:   core.StatusPending,
	}
	if err := core.ValidateSubtask(sub); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.GetTask(ctx, owner, parentID); err != nil {
		return nil, err
	}

	added, err := s.store.AddSubtasks(ctx, sub)
	if err != nil {
		return nil, err
	}
	s.embed(added[0].Ref())
	return added[0], nil
}

// ListSubtasks returns the subtasks of one of owner's tasks, oldest first.
func (s *Service) ListSubtasks(ctx context.Context, owner string, parentID core.ID) ([]*core.Subtask, error) {
	if _, err := s.GetTask(ctx, owner, parentID); err != nil {
		return nil, err
	}
	return s.store.GetSubtasksByParent(ctx, parentID)
}

// GetSubtask returns one of owner's subtasks.
func (s *Service) GetSubtask(ctx context.Context, owner string, id core.ID) (*core.Subtask, error) {
	sub, err := s.store.GetSubtask(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.OwnerId != owner {
		return nil, storage.ErrNotFound
	}
	return sub, nil
}

// UpdateSubtask applies patch to one of owner's subtasks.
func (s *Service) UpdateSubtask(ctx context.Context, owner string, id core.ID, patch SubtaskPatch) (*core.Subtask, error) {
	sub, err := s.GetSubtask(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	retitled := false
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		retitled = title != sub.Title
		sub.Title = title
	}
	if patch.Status != nil {
		sub.Status = *patch.Status
	}
	if err := core.ValidateSubtask(sub); err != nil {
		return nil, invalid(err)
	}

	updated, err := s.store.UpdateSubtasks(ctx, sub)
	if err != nil {
		return nil, err
	}
	if retitled {
		s.embed(sub.Ref())
	}
	return updated[0], nil
}

// DeleteSubtask removes one of owner's subtasks.
func (s *Service) DeleteSubtask(ctx context.Context, owner string, id core.ID) error {
	if _, err := s.GetSubtask(ctx, owner, id); err != nil {
		return err
	}
	return s.store.DeleteSubtasks(ctx, id)
}

// EmbedRecord embeds a single record now and reports the outcome.
// A record whose embedding is already current is left alone.
func (s *Service) EmbedRecord(ctx context.Context, ref core.RecordRef) error {
	if err := core.ValidateKind(ref.Kind); err != nil {
		return invalid(err)
	}
	if ref.Id == "" {
		return invalid(fmt.Errorf("%s id is required", ref.Kind))
	}
	_, err := s.updater.Update(ctx, ref)
	return err
}

// Release waits for scheduled embedding jobs and frees the worker pool.
// The service should not be used after calling Release.
func (s *Service) Release() {
	s.jobs.Wait()
	if s.pool != nil {
		s.pool.Release()
	}
}

// embed runs the embedding job for ref, inline or on the pool.
func (s *Service) embed(ref core.RecordRef) {
	job := func() {
		if _, err := s.updater.Update(context.Background(), ref); err != nil {
			s.logger.Warn("error embedding record", "kind", ref.Kind, "id", ref.Id, "err", err)
		}
	}

	if s.syncEmbedding {
		job()
		return
	}

	s.jobs.Add(1)
	if err := s.pool.Submit(func() {
		defer s.jobs.Done()
		job()
	}); err != nil {
		s.jobs.Done()
		s.logger.Error("error scheduling embedding", "kind", ref.Kind, "id", ref.Id, "err", err)
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}
