// Package similarity ranks embedded records against a query vector by
// cosine similarity.
package similarity

import (
	"math"
	"slices"
	"strings"

	"github.com/poiesic/tasklens/core"
)

// Options controls ranking.
type Options struct {
	// Threshold is the minimum similarity a result must reach (inclusive).
	Threshold float64

	// MaxResults caps the result count. Zero or negative means unlimited.
	MaxResults int
}

// Cosine returns the cosine similarity of a and b, computed in float64.
// ok is false when either vector is empty, the lengths differ, either
// vector has zero norm, or the result is not finite.
func Cosine(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0, false
	}
	// rounding can push identical vectors a hair past 1
	return max(-1, min(1, sim)), true
}

// Rank scores every candidate against query and returns those at or above
// opts.Threshold, best first. Candidates without a usable embedding are
// skipped. Ties are broken by UpdatedAt (most recent first) and then by Id
// ascending, so the order is deterministic. The result is never nil.
func Rank(query []float32, candidates []*core.Candidate, opts Options) []*core.SearchResult {
	results := make([]*core.SearchResult, 0)
	for _, c := range candidates {
		if c == nil {
			continue
		}
		sim, ok := Cosine(query, c.Embedding)
		if !ok || sim < opts.Threshold {
			continue
		}
		results = append(results, &core.SearchResult{Candidate: c, Similarity: sim})
	}

	slices.SortStableFunc(results, compareResults)

	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return results
}

func compareResults(a, b *core.SearchResult) int {
	switch {
	case a.Similarity > b.Similarity:
		return -1
	case a.Similarity < b.Similarity:
		return 1
	}
	if c := b.Candidate.UpdatedAt.Compare(a.Candidate.UpdatedAt); c != 0 {
		return c
	}
	return strings.Compare(string(a.Candidate.Id), string(b.Candidate.Id))
}
