package retrieval

import (
	"context"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
	"github.com/ramunas-s/retrievalbench/internal/qdrant"
)

// DelegatedConfig holds configuration for the Qdrant-backed searcher.
type DelegatedConfig struct {
	// Collection is the collection name the corpus is indexed into.
	Collection string

	// TopK is the number of results kept per query.
	TopK int

	// UpsertBatchSize is the number of points per upsert request.
	UpsertBatchSize int

	// Reindex forces a drop-and-rebuild of the collection even when it
	// already holds the full corpus.
	Reindex bool
}

// DelegatedSearch delegates nearest-neighbor search to a Qdrant server.
// The corpus is encoded and upserted once; queries then run as dense
// searches against the index. Useful when the corpus is too large for
// in-process exact scans.
type DelegatedSearch struct {
	enc    encoder.Encoder
	client *qdrant.Client
	cfg    DelegatedConfig
	log    *logger.Logger
}

// NewDelegatedSearch creates a Qdrant-backed searcher.
func NewDelegatedSearch(enc encoder.Encoder, client *qdrant.Client, cfg DelegatedConfig, log *logger.Logger) *DelegatedSearch {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = qdrant.DefaultUpsertBatchSize
	}
	if log == nil {
		log = logger.Default()
	}

	return &DelegatedSearch{
		enc:    enc,
		client: client,
		cfg:    cfg,
		log:    log,
	}
}

// Search implements Searcher.
func (s *DelegatedSearch) Search(ctx context.Context, corpus []dataset.Document, queries map[string]string) (Results, error) {
	if err := s.client.HealthCheck(ctx); err != nil {
		return nil, errors.BackendUnavailableError("qdrant", err)
	}

	if err := s.index(ctx, corpus); err != nil {
		return nil, err
	}

	qids := sortedQueryIDs(queries)
	texts := make([]string, len(qids))
	for i, qid := range qids {
		texts[i] = queries[qid]
	}

	qVecs, err := s.enc.EncodeQueries(ctx, texts)
	if err != nil {
		return nil, errors.RetrievalError("failed to encode queries", err)
	}

	results := make(Results, len(qids))
	for i, qid := range qids {
		hits, err := s.client.DenseSearch(ctx, s.cfg.Collection, qVecs[i], uint64(s.cfg.TopK))
		if err != nil {
			return nil, errors.RetrievalError("dense search failed for query "+qid, err)
		}

		scored := make(map[string]float64, len(hits))
		for _, h := range hits {
			if h.DocID == "" {
				continue
			}
			scored[h.DocID] = float64(h.Score)
		}
		results[qid] = scored
	}

	return results, nil
}

// index encodes the corpus and upserts it into the collection. An existing
// collection that already holds every document is reused as-is.
func (s *DelegatedSearch) index(ctx context.Context, corpus []dataset.Document) error {
	if s.cfg.Reindex {
		exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
		if err != nil {
			return errors.RetrievalError("failed to check collection", err)
		}
		if exists {
			if err := s.client.DeleteCollection(ctx, s.cfg.Collection); err != nil {
				return errors.RetrievalError("failed to drop collection for reindex", err)
			}
		}
	} else {
		exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
		if err != nil {
			return errors.RetrievalError("failed to check collection", err)
		}
		if exists {
			count, err := s.client.CountPoints(ctx, s.cfg.Collection)
			if err != nil {
				return errors.RetrievalError("failed to count points", err)
			}
			if count >= uint64(len(corpus)) {
				s.log.Info("reusing indexed corpus",
					"collection", s.cfg.Collection,
					"points", count,
				)
				return nil
			}
		}
	}

	if len(corpus) == 0 {
		return nil
	}

	// Encode one batch up front to learn the vector dimension.
	probe, err := s.enc.EncodeCorpus(ctx, corpus[:1])
	if err != nil {
		return errors.RetrievalError("failed to encode corpus", err)
	}
	dim := uint64(len(probe[0]))

	if err := s.client.EnsureCollection(ctx, qdrant.DefaultCollectionConfig(s.cfg.Collection, dim)); err != nil {
		return errors.RetrievalError("failed to create collection", err)
	}

	s.log.Info("indexing corpus",
		"collection", s.cfg.Collection,
		"documents", len(corpus),
		"dimension", dim,
	)

	for start := 0; start < len(corpus); start += s.cfg.UpsertBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + s.cfg.UpsertBatchSize
		if end > len(corpus) {
			end = len(corpus)
		}
		batch := corpus[start:end]

		vecs, err := s.enc.EncodeCorpus(ctx, batch)
		if err != nil {
			return errors.RetrievalError("failed to encode corpus batch", err)
		}

		points := make([]qdrant.Point, len(batch))
		for i, doc := range batch {
			points[i] = qdrant.Point{
				DocID:  doc.ID,
				Vector: vecs[i],
				Title:  doc.Title,
			}
		}

		if err := s.client.UpsertPointsBatch(ctx, s.cfg.Collection, points, s.cfg.UpsertBatchSize); err != nil {
			return errors.RetrievalError("failed to upsert corpus batch", err)
		}
	}

	return nil
}
