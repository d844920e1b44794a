package retrieval

import (
	"context"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

// DefaultCorpusChunkSize is the number of documents encoded and scored per
// corpus chunk.
const DefaultCorpusChunkSize = 50000

// DefaultTopK is the number of candidates kept per query.
const DefaultTopK = 1000

// ExactConfig configures the exact dense searcher.
type ExactConfig struct {
	// ChunkSize is the corpus chunk size.
	ChunkSize int

	// TopK is the number of results kept per query.
	TopK int

	// ScoreFunction is "cos_sim" or "dot".
	ScoreFunction string
}

// DefaultExactConfig returns sensible defaults.
func DefaultExactConfig() ExactConfig {
	return ExactConfig{
		ChunkSize:     DefaultCorpusChunkSize,
		TopK:          DefaultTopK,
		ScoreFunction: ScoreCosine,
	}
}

// ExactSearch scans the whole corpus in chunks and scores every document
// against every query. Exhaustive, no index.
type ExactSearch struct {
	enc   encoder.Encoder
	cfg   ExactConfig
	score ScoreFunc
	log   *logger.Logger
}

// NewExactSearch creates an exact dense searcher.
func NewExactSearch(enc encoder.Encoder, cfg ExactConfig, log *logger.Logger) *ExactSearch {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultCorpusChunkSize
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if log == nil {
		log = logger.Default()
	}

	return &ExactSearch{
		enc:   enc,
		cfg:   cfg,
		score: ScoreFuncFor(cfg.ScoreFunction),
		log:   log,
	}
}

// Search implements Searcher.
func (s *ExactSearch) Search(ctx context.Context, corpus []dataset.Document, queries map[string]string) (Results, error) {
	qids := sortedQueryIDs(queries)
	texts := make([]string, len(qids))
	for i, qid := range qids {
		texts[i] = queries[qid]
	}

	qVecs, err := s.enc.EncodeQueries(ctx, texts)
	if err != nil {
		return nil, errors.RetrievalError("failed to encode queries", err)
	}

	heaps := make([]*topK, len(qids))
	for i := range heaps {
		heaps[i] = newTopK(s.cfg.TopK)
	}

	for start := 0; start < len(corpus); start += s.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := start + s.cfg.ChunkSize
		if end > len(corpus) {
			end = len(corpus)
		}
		chunk := corpus[start:end]

		s.log.Debug("scoring corpus chunk", "start", start, "end", end)

		if err := scoreChunk(ctx, s.enc, s.score, chunk, qVecs, heaps); err != nil {
			return nil, err
		}
	}

	results := make(Results, len(qids))
	for i, qid := range qids {
		results[qid] = heaps[i].results()
	}
	return results, nil
}

// scoreChunk encodes one corpus chunk and offers every document to every
// query's accumulator.
func scoreChunk(ctx context.Context, enc encoder.Encoder, score ScoreFunc, chunk []dataset.Document, qVecs [][]float32, heaps []*topK) error {
	dVecs, err := enc.EncodeCorpus(ctx, chunk)
	if err != nil {
		return errors.RetrievalError("failed to encode corpus chunk", err)
	}
	if len(dVecs) != len(chunk) {
		return errors.New(errors.CodeRetrievalError, "encoder returned wrong number of corpus vectors")
	}

	for d, doc := range chunk {
		for q, qVec := range qVecs {
			heaps[q].add(doc.ID, score(qVec, dVecs[d]))
		}
	}
	return nil
}
