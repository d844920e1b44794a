package retrieval

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

// ParallelExactSearch shards corpus chunks across a worker pool. Results
// are identical to ExactSearch; only wall-clock time differs. The encoder
// must be safe for concurrent use.
type ParallelExactSearch struct {
	enc     encoder.Encoder
	cfg     ExactConfig
	workers int
	score   ScoreFunc
	log     *logger.Logger
}

// NewParallelExactSearch creates a parallel exact searcher with the given
// worker count (defaults to GOMAXPROCS).
func NewParallelExactSearch(enc encoder.Encoder, cfg ExactConfig, workers int, log *logger.Logger) *ParallelExactSearch {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultCorpusChunkSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logger.Default()
	}

	return &ParallelExactSearch{
		enc:     enc,
		cfg:     cfg,
		workers: workers,
		score:   ScoreFuncFor(cfg.ScoreFunction),
		log:     log,
	}
}

// Search implements Searcher.
func (s *ParallelExactSearch) Search(ctx context.Context, corpus []dataset.Document, queries map[string]string) (Results, error) {
	qids := sortedQueryIDs(queries)
	texts := make([]string, len(qids))
	for i, qid := range qids {
		texts[i] = queries[qid]
	}

	qVecs, err := s.enc.EncodeQueries(ctx, texts)
	if err != nil {
		return nil, errors.RetrievalError("failed to encode queries", err)
	}

	// One chunk range per work item, fanned out to the pool.
	type chunkRange struct{ start, end int }
	chunks := make(chan chunkRange)

	// Per-worker accumulators, merged after the pool drains.
	workerHeaps := make([][]*topK, s.workers)
	for w := range workerHeaps {
		workerHeaps[w] = make([]*topK, len(qids))
		for i := range workerHeaps[w] {
			workerHeaps[w][i] = newTopK(s.cfg.TopK)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	for w := 0; w < s.workers; w++ {
		heaps := workerHeaps[w]
		g.Go(func() error {
			for cr := range chunks {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := scoreChunk(gctx, s.enc, s.score, corpus[cr.start:cr.end], qVecs, heaps); err != nil {
					return err
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(chunks)
		for start := 0; start < len(corpus); start += s.cfg.ChunkSize {
			end := start + s.cfg.ChunkSize
			if end > len(corpus) {
				end = len(corpus)
			}
			select {
			case chunks <- chunkRange{start: start, end: end}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge worker accumulators into the first worker's heaps.
	merged := workerHeaps[0]
	for _, heaps := range workerHeaps[1:] {
		for i := range merged {
			merged[i].merge(heaps[i])
		}
	}

	results := make(Results, len(qids))
	for i, qid := range qids {
		results[qid] = merged[i].results()
	}
	return results, nil
}
