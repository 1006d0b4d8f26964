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

package tasklens

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/ai/cached"
	"github.com/poiesic/tasklens/ai/openai"
	"github.com/poiesic/tasklens/backfill"
	"github.com/poiesic/tasklens/search"
	"github.com/poiesic/tasklens/storage"
	"github.com/poiesic/tasklens/storage/badger"
	"github.com/poiesic/tasklens/storage/postgres"
	"github.com/poiesic/tasklens/tasks"
)

// Database wires a store and an embedding provider together and hands out
// the services built on them.
type Database struct {
	store    storage.Store
	provider ai.AIProvider
	embedder ai.Embedder
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig    *ai.Config
	postgresDSN string
	embedder    ai.Embedder
	noCache     bool
	logger      *slog.Logger
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithPostgres stores records in PostgreSQL (with pgvector) instead of a
// local BadgerDB directory. The file path given to NewDatabase is ignored.
func WithPostgres(dsn string) DatabaseOption {
	return func(o *databaseOptions) {
		o.postgresDSN = dsn
	}
}

// WithEmbedder uses embedder instead of building one from the AI config.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithoutEmbeddingCache turns off the BadgerDB embedding cache.
func WithoutEmbeddingCache() DatabaseOption {
	return func(o *databaseOptions) {
		o.noCache = true
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the store at filePath (or the PostgreSQL database set
// with WithPostgres) and connects the embedding provider.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	db := &Database{logger: options.logger}

	// Open storage
	var cache storage.EmbeddingCache
	if options.postgresDSN != "" {
		pg, err := postgres.Open(options.postgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			pg.Close()
			return nil, err
		}
		db.store = pg
	} else {
		store, err := badger.OpenStore(filePath)
		if err != nil {
			return nil, err
		}
		db.store = store
		cache = store
	}

	// Connect the embedder
	embedder := options.embedder
	if embedder == nil {
		provider, err := openai.NewProvider(options.aiConfig)
		if err != nil {
			db.store.Close()
			return nil, err
		}
		db.provider = provider
		embedder = provider.Embedder()
	}
	if cache != nil && !options.noCache {
		embedder = cached.New(embedder, cache, cached.WithLogger(options.logger))
	}
	db.embedder = embedder

	return db, nil
}

// Close releases the provider and the store.
func (db *Database) Close() error {
	if db.provider != nil {
		if err := db.provider.Close(); err != nil {
			db.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

// Store returns the underlying record store.
func (db *Database) Store() storage.Store {
	return db.store
}

// Embedder returns the embedder used by every service, cache included.
func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	return search.NewSearcher(db.store, db.embedder, append([]search.Option{search.WithLogger(db.logger)}, opts...)...)
}

func (db *Database) NewBackfiller(config *backfill.Config, opts ...backfill.Option) (*backfill.Backfiller, error) {
	return backfill.NewBackfiller(db.store, db.embedder, config, append([]backfill.Option{backfill.WithLogger(db.logger)}, opts...)...)
}

func (db *Database) NewTaskService(opts ...tasks.Option) (*tasks.Service, error) {
	return tasks.NewService(db.store, db.embedder, append([]tasks.Option{tasks.WithLogger(db.logger)}, opts...)...)
}
