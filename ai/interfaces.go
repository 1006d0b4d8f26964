package ai

import (
	"context"
	"errors"
)

// ErrProvider marks failures reported by the embedding service.
// Callers use errors.Is(err, ErrProvider) to tell upstream failures apart
// from storage failures.
var ErrProvider = errors.New("embedding provider error")

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ModelNamer is implemented by embedders that know which model they call.
// The embedding cache keys entries by model so switching models never
// serves vectors from another embedding space.
type ModelNamer interface {
	ModelName() string
}

// AIProvider owns the embedding service and its lifecycle.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	Close() error
}
