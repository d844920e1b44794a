// Package retrieval implements dense retrieval over an in-memory corpus:
// chunked corpus scanning with exact nearest-neighbor scoring, a parallel
// variant, and a delegating backend for out-of-process search.
package retrieval

import (
	"context"
	"math"
	"sort"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
)

// Results maps query IDs to retrieved document IDs and their scores.
type Results map[string]map[string]float64

// Searcher runs retrieval for a set of queries over a corpus.
type Searcher interface {
	Search(ctx context.Context, corpus []dataset.Document, queries map[string]string) (Results, error)
}

// Score function names.
const (
	ScoreCosine = "cos_sim"
	ScoreDot    = "dot"
)

// ScoreFunc scores a query vector against a document vector.
type ScoreFunc func(query, doc []float32) float64

// CosineSimilarity returns the cosine of the angle between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DotProduct returns the inner product of two vectors.
func DotProduct(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// ScoreFuncFor resolves a score function by name, defaulting to cosine.
func ScoreFuncFor(name string) ScoreFunc {
	if name == ScoreDot {
		return DotProduct
	}
	return CosineSimilarity
}

// sortedQueryIDs returns query IDs in deterministic order.
func sortedQueryIDs(queries map[string]string) []string {
	ids := make([]string, 0, len(queries))
	for id := range queries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
