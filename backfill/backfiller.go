// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/storage"
)

// Result reports the outcome of a backfill run.
type Result struct {
	// Processed is the number of records whose embedding was stored.
	Processed int
	// Total is the number of stale records the run found.
	Total int
}

// Backfiller computes embeddings for every record that lacks a current one.
type Backfiller struct {
	store    storage.Store
	updater  *Updater
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Backfiller.
type Option func(*Backfiller) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backfiller) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// WithProgress writes progress lines to w (typically os.Stderr).
// Default is no progress output.
func WithProgress(w io.Writer) Option {
	return func(b *Backfiller) error {
		if w == nil {
			w = io.Discard
		}
		b.progress = w
		return nil
	}
}

// NewBackfiller creates a new backfiller. A nil config uses DefaultConfig.
func NewBackfiller(store storage.Store, embedder ai.Embedder, config *Config, opts ...Option) (*Backfiller, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	b := &Backfiller{
		store:    store,
		config:   config.withDefaults(),
		progress: io.Discard,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	b.logger = b.logger.With("component", "backfill")

	updater, err := NewUpdater(store, embedder, b.config, b.logger)
	if err != nil {
		return nil, err
	}
	b.updater = updater

	return b, nil
}

// Updater returns the single-record updater used by the run.
func (b *Backfiller) Updater() *Updater {
	return b.updater
}

// Run embeds every stale record once.
//
// Records are processed independently and concurrently. A record that fails
// is logged and left for the next run; it never aborts the others. Only a
// failure to list stale records fails the run. If ctx ends, no further
// records are started and Run returns the partial counts with ctx's error.
func (b *Backfiller) Run(ctx context.Context) (Result, error) {
	refs, err := b.collect(ctx)
	if err != nil {
		b.logger.Error("error listing stale records", "err", err)
		return Result{}, fmt.Errorf("%w: %w", ErrListing, err)
	}

	result := Result{Total: len(refs)}
	if len(refs) == 0 {
		b.logger.Debug("no stale records")
		return result, nil
	}

	b.logger.Info("starting backfill", "records", len(refs), "workers", b.config.PoolSize)

	pool, err := ants.NewPool(b.config.PoolSize)
	if err != nil {
		return result, err
	}
	defer pool.Release()

	tracker := NewProgressTracker(b.progress, len(refs), b.config.ReportInterval)
	tracker.Start()

	var (
		wg      sync.WaitGroup
		updated atomic.Int64
	)
	for _, ref := range refs {
		ref := ref
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			ok, err := b.updater.Update(ctx, ref)
			if err != nil {
				b.logger.Warn("error backfilling record", "kind", ref.Kind, "id", ref.Id, "err", err)
			}
			if ok {
				updated.Add(1)
			}
			tracker.Record(err == nil)
		})
		if submitErr != nil {
			wg.Done()
			b.logger.Error("error submitting record", "kind", ref.Kind, "id", ref.Id, "err", submitErr)
			tracker.Record(false)
		}
	}
	wg.Wait()
	tracker.Finish()

	done, failed := tracker.Counts()
	result.Processed = int(updated.Load())

	b.logger.Info("backfill complete",
		"processed", result.Processed,
		"failed", failed,
		"skipped", done-failed-result.Processed,
		"total", result.Total,
		"elapsed", tracker.Elapsed().Round(time.Millisecond))

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// collect lists the stale records of the configured kinds, tasks first.
func (b *Backfiller) collect(ctx context.Context) ([]core.RecordRef, error) {
	var refs []core.RecordRef
	if slices.Contains(b.config.Kinds, core.KindTask) {
		tasks, err := b.store.GetStaleTasks(ctx)
		if err != nil {
			return nil, err
		}
		for _, task := range tasks {
			refs = append(refs, task.Ref())
		}
	}
	if slices.Contains(b.config.Kinds, core.KindSubtask) {
		subs, err := b.store.GetStaleSubtasks(ctx)
		if err != nil {
			return nil, err
		}
		for _, sub := range subs {
			refs = append(refs, sub.Ref())
		}
	}
	return refs, nil
}
