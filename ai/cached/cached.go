// Package cached memoizes embeddings so an unchanged title is never sent to
// the embedding service twice.
package cached

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/storage"
)

// Embedder wraps an ai.Embedder with a storage.EmbeddingCache.
// Cache failures are logged and never fail an embedding request.
type Embedder struct {
	next   ai.Embedder
	cache  storage.EmbeddingCache
	model  string
	logger *slog.Logger
}

var (
	_ ai.Embedder   = (*Embedder)(nil)
	_ ai.ModelNamer = (*Embedder)(nil)
)

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		if logger != nil {
			e.logger = logger.With("component", "embedding-cache")
		}
	}
}

// WithModel overrides the model name used in cache keys.
func WithModel(model string) Option {
	return func(e *Embedder) {
		e.model = model
	}
}

// New wraps next with cache. The model name is taken from next when it
// implements ai.ModelNamer.
func New(next ai.Embedder, cache storage.EmbeddingCache, opts ...Option) *Embedder {
	e := &Embedder{
		next:   next,
		cache:  cache,
		logger: slog.Default().With("component", "embedding-cache"),
	}
	if namer, ok := next.(ai.ModelNamer); ok {
		e.model = namer.ModelName()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelName returns the model name used in cache keys.
func (e *Embedder) ModelName() string {
	return e.model
}

// EmbedText returns the cached vector for text or embeds and caches it.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vector, ok := e.lookup(ctx, text); ok {
		return vector, nil
	}

	vector, err := e.next.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(ctx, text, vector)
	return vector, nil
}

// EmbedTexts embeds only the texts missing from the cache, in one batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var (
		missing    []string
		missingIdx []int
	)
	for i, text := range texts {
		if vector, ok := e.lookup(ctx, text); ok {
			results[i] = vector
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return results, nil
	}

	vectors, err := e.next.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, errors.Join(ai.ErrProvider, errors.New("embedding count mismatch"))
	}
	for j, vector := range vectors {
		results[missingIdx[j]] = vector
		e.store(ctx, missing[j], vector)
	}
	return results, nil
}

func (e *Embedder) lookup(ctx context.Context, text string) ([]float32, bool) {
	vector, err := e.cache.GetEmbedding(ctx, e.model, text)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			e.logger.Warn("embedding cache read failed", "err", err)
		}
		return nil, false
	}
	return vector, true
}

func (e *Embedder) store(ctx context.Context, text string, vector []float32) {
	if len(vector) == 0 {
		return
	}
	if err := e.cache.PutEmbedding(ctx, e.model, text, vector); err != nil {
		e.logger.Warn("embedding cache write failed", "err", err)
	}
}
