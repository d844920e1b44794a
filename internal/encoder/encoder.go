// Package encoder normalizes text-embedding models to the dual-method
// interface the retrieval engine expects. Models that already encode
// queries and corpus documents separately pass through unchanged; anything
// with a plain batch encode call is wrapped by Adapter.
package encoder

import (
	"context"
	"math"
	"strings"

	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

// Model is the minimal surface an embedding model exposes: one batch
// encode call over raw texts.
type Model interface {
	// Encode returns one vector per input text, in order.
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Encoder is the paired interface dense retrieval requires. Implementations
// must be safe for concurrent use; the parallel searcher calls them from
// multiple goroutines.
type Encoder interface {
	// EncodeQueries embeds query texts.
	EncodeQueries(ctx context.Context, queries []string) ([][]float32, error)

	// EncodeCorpus embeds corpus documents.
	EncodeCorpus(ctx context.Context, docs []dataset.Document) ([][]float32, error)
}

// Resolve returns the model unchanged when it already implements Encoder,
// and wraps it in an Adapter when it only exposes the generic encode call.
func Resolve(model any, opts ...AdapterOption) (Encoder, error) {
	if enc, ok := model.(Encoder); ok {
		return enc, nil
	}
	if m, ok := model.(Model); ok {
		return NewAdapter(m, opts...), nil
	}
	return nil, errors.New(errors.CodeEncoderError,
		"model implements neither the paired query/corpus interface nor a generic encode call")
}

// DefaultSep separates title and body text when building corpus sentences.
const DefaultSep = " "

// DefaultBatchSize is the number of texts sent to the model per call.
const DefaultBatchSize = 128

// longQueryThreshold is the query length above which a warning is logged.
const longQueryThreshold = 10000

// Adapter wraps a generic Model to satisfy Encoder. Corpus documents become
// "title<sep>text" sentences and every returned vector is L2-normalized.
type Adapter struct {
	model     Model
	sep       string
	batchSize int
	// queryInstruction, when set, prefixes every query with an
	// instruction template before encoding.
	queryInstruction string
	log              *logger.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithSep sets the title/text separator.
func WithSep(sep string) AdapterOption {
	return func(a *Adapter) { a.sep = sep }
}

// WithBatchSize sets the encode batch size.
func WithBatchSize(n int) AdapterOption {
	return func(a *Adapter) {
		if n > 0 {
			a.batchSize = n
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(log *logger.Logger) AdapterOption {
	return func(a *Adapter) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAdapter creates an adapter around a generic encode model.
func NewAdapter(model Model, opts ...AdapterOption) *Adapter {
	a := &Adapter{
		model:     model,
		sep:       DefaultSep,
		batchSize: DefaultBatchSize,
		log:       logger.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EncodeQueries implements Encoder.
func (a *Adapter) EncodeQueries(ctx context.Context, queries []string) ([][]float32, error) {
	texts := make([]string, len(queries))
	for i, q := range queries {
		if len(q) > longQueryThreshold {
			a.log.Warn("long query", "length", len(q))
		}
		if a.queryInstruction != "" {
			q = instructQuery(a.queryInstruction, q)
		}
		texts[i] = q
	}
	return a.encodeBatched(ctx, texts)
}

// EncodeCorpus implements Encoder.
func (a *Adapter) EncodeCorpus(ctx context.Context, docs []dataset.Document) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = a.corpusText(doc)
	}
	return a.encodeBatched(ctx, texts)
}

// corpusText builds the sentence to embed for a document.
func (a *Adapter) corpusText(doc dataset.Document) string {
	if doc.Title == "" {
		return strings.TrimSpace(doc.Text)
	}
	return strings.TrimSpace(doc.Title + a.sep + doc.Text)
}

func (a *Adapter) encodeBatched(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += a.batchSize {
		end := i + a.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := a.model.Encode(ctx, texts[i:end])
		if err != nil {
			return nil, errors.EncoderError("encode batch failed", err)
		}
		if len(batch) != end-i {
			return nil, errors.New(errors.CodeEncoderError, "model returned wrong number of vectors")
		}

		for _, v := range batch {
			vectors = append(vectors, L2Normalize(v))
		}
	}

	return vectors, nil
}

// L2Normalize normalizes a vector to unit length. The zero vector is
// returned unchanged.
func L2Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}

	norm := float32(math.Sqrt(sum))
	if norm == 0 {
		return v
	}

	result := make([]float32, len(v))
	for i, x := range v {
		result[i] = x / norm
	}

	return result
}
