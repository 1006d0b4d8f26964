package backfill

import "errors"

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrListing is returned when stale records could not be listed.
	ErrListing = errors.New("listing stale records failed")

	// ErrEmptyEmbedding is returned when the embedder returns no vector.
	ErrEmptyEmbedding = errors.New("embedder returned an empty vector")
)
