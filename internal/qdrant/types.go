// Package qdrant wraps the Qdrant Go client with the operations the
// benchmark harness needs: dense-only collections keyed by corpus
// document ID.
package qdrant

import (
	"time"
)

// CollectionConfig defines the configuration for creating a collection.
type CollectionConfig struct {
	// Name is the collection name (prefixed before use).
	Name string

	// VectorSize is the dimension of the dense vectors.
	VectorSize uint64

	// OnDiskPayload stores payload on disk to save RAM.
	OnDiskPayload bool

	// IndexingThreshold is the number of vectors before the HNSW index is built.
	IndexingThreshold uint64
}

// DefaultCollectionConfig returns sensible defaults for a benchmark corpus.
func DefaultCollectionConfig(name string, vectorSize uint64) CollectionConfig {
	return CollectionConfig{
		Name:              name,
		VectorSize:        vectorSize,
		OnDiskPayload:     true,
		IndexingThreshold: 20000,
	}
}

// Point represents a corpus document to upsert.
type Point struct {
	// DocID is the corpus document identifier. The point ID stored in
	// Qdrant is derived from it deterministically.
	DocID string

	// Vector is the document embedding.
	Vector []float32

	// Title is the optional document title, kept in the payload.
	Title string
}

// SearchResult is a single nearest-neighbor hit.
type SearchResult struct {
	// DocID is the corpus document identifier from the payload.
	DocID string

	// Score is the similarity score reported by Qdrant.
	Score float32
}

// CollectionInfo describes a collection's state.
type CollectionInfo struct {
	Name        string
	PointsCount uint64
	Status      string
}

// DefaultUpsertBatchSize is the number of points per upsert request.
const DefaultUpsertBatchSize = 256

// DefaultTimeout is the default per-operation timeout.
const DefaultTimeout = 60 * time.Second
