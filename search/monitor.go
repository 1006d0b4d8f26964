package search

import (
	"github.com/poiesic/tasklens/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query, userID string)
	AfterQueryEmbedding(dimensions int)
	// AfterCandidateRetrieval reports how many records came back and how
	// many of them carry an embedding of their current title.
	AfterCandidateRetrieval(retrieved, fresh int)
	Finish(results []*core.SearchResult)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                {}
func (n *noopMonitor) AfterQueryEmbedding(_ int)        {}
func (n *noopMonitor) AfterCandidateRetrieval(_, _ int) {}
func (n *noopMonitor) Finish(_ []*core.SearchResult)    {}
