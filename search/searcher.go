package search

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/poiesic/tasklens/ai"
	"github.com/poiesic/tasklens/core"
	"github.com/poiesic/tasklens/similarity"
	"github.com/poiesic/tasklens/storage"
)

const (
	// DefaultThreshold is the minimum cosine similarity for a result.
	DefaultThreshold = 0.5

	// DefaultMaxResults caps the number of results.
	DefaultMaxResults = 10
)

// Searcher provides semantic search over a user's tasks and subtasks.
type Searcher struct {
	source   storage.CandidateSource
	embedder ai.Embedder
	opts     similarity.Options
	kinds    []core.Kind
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithThreshold sets the minimum similarity, in [-1, 1].
func WithThreshold(threshold float64) Option {
	return func(s *Searcher) error {
		if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
			return fmt.Errorf("%w: threshold %v outside [-1, 1]", ErrInvalidOption, threshold)
		}
		s.opts.Threshold = threshold
		return nil
	}
}

// WithMaxResults caps the number of results. Zero or negative means unlimited.
func WithMaxResults(n int) Option {
	return func(s *Searcher) error {
		s.opts.MaxResults = n
		return nil
	}
}

// WithKinds restricts which record kinds are searched.
func WithKinds(kinds ...core.Kind) Option {
	return func(s *Searcher) error {
		if len(kinds) == 0 {
			return fmt.Errorf("%w: at least one kind is required", ErrInvalidOption)
		}
		for _, k := range kinds {
			if err := core.ValidateKind(k); err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidOption, err)
			}
		}
		s.kinds = slices.Clone(kinds)
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(source storage.CandidateSource, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if source == nil {
		return nil, ErrSourceRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		source:   source,
		embedder: embedder,
		opts: similarity.Options{
			Threshold:  DefaultThreshold,
			MaxResults: DefaultMaxResults,
		},
		kinds:  slices.Clone(core.AllKinds),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "searcher")

	return s, nil
}

// Search returns userID's records most similar to query, best first.
func (s *Searcher) Search(ctx context.Context, query, userID string) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, query, userID, nil)
}

// SearchWithMonitor is Search with callbacks at each stage.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query, userID string, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrQueryRequired
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}

	monitor.Start(query, userID)

	// 1. Embed the query
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "user", userID, "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}
	if len(embedding) == 0 {
		s.logger.Error("embedder returned an empty vector", "user", userID)
		return nil, fmt.Errorf("%w: empty vector", ErrEmbedding)
	}
	monitor.AfterQueryEmbedding(len(embedding))

	// 2. Rank, in the database when the backend can
	var results []*core.SearchResult
	if vs, ok := s.source.(storage.VectorSearcher); ok {
		results, err = vs.FindSimilar(ctx, userID, s.kinds, embedding, s.opts.Threshold, s.opts.MaxResults)
		if err != nil {
			s.logger.Error("error ranking candidates in storage", "user", userID, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		monitor.AfterCandidateRetrieval(len(results), len(results))
	} else {
		candidates, err := s.source.GetCandidates(ctx, userID, s.kinds)
		if err != nil {
			s.logger.Error("error retrieving candidates", "user", userID, "err", err)
			return nil, fmt.Errorf("%w: %w", ErrStorage, err)
		}
		fresh := make([]*core.Candidate, 0, len(candidates))
		for _, c := range candidates {
			if c != nil && c.OwnerId == userID && c.HasFreshEmbedding() {
				fresh = append(fresh, c)
			}
		}
		monitor.AfterCandidateRetrieval(len(candidates), len(fresh))
		if stale := len(candidates) - len(fresh); stale > 0 {
			s.logger.Debug("skipped candidates without a current embedding", "user", userID, "count", stale)
		}
		results = similarity.Rank(embedding, fresh, s.opts)
	}

	// 3. Never hand back another user's records
	results = slices.DeleteFunc(results, func(r *core.SearchResult) bool {
		if r == nil || r.Candidate == nil || r.Candidate.OwnerId != userID {
			s.logger.Warn("dropping result owned by another user", "user", userID)
			return true
		}
		return false
	})
	if results == nil {
		results = []*core.SearchResult{}
	}

	s.logger.Debug("search complete", "user", userID, "results", len(results))
	monitor.Finish(results)
	return results, nil
}
