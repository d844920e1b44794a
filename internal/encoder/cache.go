package encoder

import (
	"context"
	"sync"

	"github.com/ramunas-s/retrievalbench/internal/metrics"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/hash"
)

// Store is the key-value surface the cached model writes embeddings to.
type Store interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vector []float32)
}

// MemoryStore is an in-memory LRU embedding store.
type MemoryStore struct {
	mu      sync.Mutex
	cache   map[string][]float32
	maxSize int
	order   []string // LRU order
}

// NewMemoryStore creates an LRU store holding at most maxSize vectors.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}

	return &MemoryStore{
		cache:   make(map[string][]float32),
		maxSize: maxSize,
		order:   make([]string, 0, maxSize),
	}
}

// Get retrieves a vector from the store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]float32, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vec, ok := s.cache[key]
	if !ok {
		return nil, false
	}

	s.moveToEnd(key)

	// Return a copy to prevent external mutation.
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector, evicting the least recently used entry at capacity.
func (s *MemoryStore) Set(_ context.Context, key string, vector []float32) {
	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cache[key]; exists {
		s.cache[key] = vec
		s.moveToEnd(key)
		return
	}

	for len(s.cache) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.cache, oldest)
	}

	s.cache[key] = vec
	s.order = append(s.order, key)
}

// Size returns the current number of stored vectors.
func (s *MemoryStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// moveToEnd moves a key to the end of the LRU order (must hold lock).
func (s *MemoryStore) moveToEnd(key string) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			s.order = append(s.order, key)
			return
		}
	}
}

// CachedModel decorates a Model with an embedding store keyed by the
// SHA-256 of each text, scoped by model name.
type CachedModel struct {
	inner Model
	store Store
	name  string
}

// NewCachedModel creates a caching decorator around a model.
func NewCachedModel(inner Model, store Store, modelName string) *CachedModel {
	return &CachedModel{
		inner: inner,
		store: store,
		name:  modelName,
	}
}

// Encode implements Model. Texts found in the store skip the inner model;
// only the misses are forwarded, preserving input order in the output.
func (c *CachedModel) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		key := hash.CacheKey(c.name, text)
		if vec, ok := c.store.Get(ctx, key); ok {
			metrics.EncodeCacheTotal.WithLabelValues("hit").Inc()
			vectors[i] = vec
			continue
		}
		metrics.EncodeCacheTotal.WithLabelValues("miss").Inc()
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return vectors, nil
	}

	encoded, err := c.inner.Encode(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(encoded) != len(missTexts) {
		return nil, errors.New(errors.CodeEncoderError, "model returned wrong number of vectors")
	}

	for j, vec := range encoded {
		i := missIdx[j]
		vectors[i] = vec
		c.store.Set(ctx, hash.CacheKey(c.name, texts[i]), vec)
	}

	return vectors, nil
}
