// Package openai provides an embedding model backed by an OpenAI-compatible
// API.
package openai

import (
	"context"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ramunas-s/retrievalbench/internal/metrics"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

// Client calls an OpenAI-compatible embeddings endpoint.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	log        *logger.Logger
}

// Config holds the provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	Logger     *logger.Logger
}

// New creates an OpenAI-compatible embedding client.
func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		log:        log,
	}
}

// Encode embeds a batch of texts in a single API call.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EncodeRequestsTotal.WithLabelValues("openai", string(c.model), "error").Inc()
		return nil, errors.EncoderError("embeddings API call failed", err)
	}
	if len(resp.Data) != len(texts) {
		metrics.EncodeRequestsTotal.WithLabelValues("openai", string(c.model), "error").Inc()
		return nil, errors.New(errors.CodeEncoderError, "embeddings API returned wrong number of vectors")
	}

	metrics.EncodeRequestsTotal.WithLabelValues("openai", string(c.model), "success").Inc()
	metrics.EncodeRequestDuration.WithLabelValues("openai", string(c.model)).Observe(duration.Seconds())

	// The API may reorder results; Index restores input order.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, errors.New(errors.CodeEncoderError, "embeddings API returned out-of-range index")
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}
