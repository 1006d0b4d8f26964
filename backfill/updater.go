package backfill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// Updater embeds a single record's current title and stores the vector
// together with the title's hash.
type Updater struct {
	store    storage.Store
	embedder ai.Embedder
	config   *Config
	logger   *slog.Logger
}

// NewUpdater creates a new Updater. A nil config uses DefaultConfig.
func NewUpdater(store storage.Store, embedder ai.Embedder, config *Config, logger *slog.Logger) (*Updater, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Updater{
		store:    store,
		embedder: embedder,
		config:   config.withDefaults(),
		logger:   logger.With("component", "updater"),
	}, nil
}

// Update embeds the record identified by ref if its embedding is missing
// or stale, and reports whether a new embedding was stored. A record that
// is already fresh is left alone and reported as not updated.
//
// If the title changes while the embedding is computed, the write is
// rejected with storage.ErrContentChanged and the record stays stale.
func (u *Updater) Update(ctx context.Context, ref core.RecordRef) (bool, error) {
	title, fresh, err := u.load(ctx, ref)
	if err != nil {
		return false, err
	}
	if fresh {
		u.logger.Debug("embedding already current", "kind", ref.Kind, "id", ref.Id)
		return false, nil
	}

	var vector []float32
	err = RetryWithBackoff(ctx, func() error {
		v, err := u.embedder.EmbedText(ctx, title)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ErrEmptyEmbedding
		}
		vector = v
		return nil
	}, u.config.MaxRetries, u.config.RetryDelay)
	if err != nil {
		return false, fmt.Errorf("embedding %s %s: %w", ref.Kind, ref.Id, err)
	}

	if u.config.Normalize {
		vector = NormalizeVector(vector)
	}
	hash := core.HashContent(title)

	switch ref.Kind {
	case core.KindTask:
		err = u.store.SetTaskEmbedding(ctx, ref.Id, vector, hash)
	default:
		err = u.store.SetSubtaskEmbedding(ctx, ref.Id, vector, hash)
	}
	if err != nil {
		return false, fmt.Errorf("storing embedding for %s %s: %w", ref.Kind, ref.Id, err)
	}

	u.logger.Debug("stored embedding", "kind", ref.Kind, "id", ref.Id, "dimensions", len(vector))
	return true, nil
}

// load returns the record's current title and whether its embedding is fresh.
func (u *Updater) load(ctx context.Context, ref core.RecordRef) (string, bool, error) {
	switch ref.Kind {
	case core.KindTask:
		task, err := u.store.GetTask(ctx, ref.Id)
		if err != nil {
			return "", false, fmt.Errorf("loading task %s: %w", ref.Id, err)
		}
		return task.Title, task.HasFreshEmbedding(), nil
	case core.KindSubtask:
		sub, err := u.store.GetSubtask(ctx, ref.Id)
		if err != nil {
			return "", false, fmt.Errorf("loading subtask %s: %w", ref.Id, err)
		}
		return sub.Title, sub.HasFreshEmbedding(), nil
	default:
		return "", false, core.ErrInvalidKind
	}
}
