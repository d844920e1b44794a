// Package ollama provides an embedding model backed by a local Ollama
// server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/ramunas-s/retrievalbench/internal/metrics"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
)

// DefaultBaseURL is the Ollama server address used when none is configured.
const DefaultBaseURL = "http://localhost:11434"

// Client calls the Ollama /api/embed endpoint.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds the Ollama client settings.
type Config struct {
	BaseURL string
	Model   string
	// RequestsPerSecond throttles calls to the server; zero disables
	// throttling.
	RequestsPerSecond float64
	Timeout           time.Duration
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// New creates an Ollama embedding client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Encode embeds a batch of texts in a single API call.
func (c *Client) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.EncoderError("rate limit wait interrupted", err)
		}
	}

	body, err := json.Marshal(embedRequest{
		Model: c.model,
		Input: texts,
	})
	if err != nil {
		return nil, errors.EncoderError("marshal embed request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, errors.EncoderError("create embed request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.EncodeRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		return nil, errors.EncoderError("embed request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.EncodeRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		return nil, errors.EncoderError(
			fmt.Sprintf("embed request returned status %d", resp.StatusCode), nil)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.EncodeRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		return nil, errors.EncoderError("decode embed response", err)
	}

	if len(parsed.Embeddings) != len(texts) {
		metrics.EncodeRequestsTotal.WithLabelValues("ollama", c.model, "error").Inc()
		return nil, errors.New(errors.CodeEncoderError, "ollama returned wrong number of embeddings")
	}

	metrics.EncodeRequestsTotal.WithLabelValues("ollama", c.model, "success").Inc()
	metrics.EncodeRequestDuration.WithLabelValues("ollama", c.model).Observe(duration.Seconds())

	return parsed.Embeddings, nil
}
