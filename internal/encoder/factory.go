package encoder

import (
	"time"

	"github.com/ramunas-s/retrievalbench/internal/config"
	"github.com/ramunas-s/retrievalbench/internal/encoder/ollama"
	"github.com/ramunas-s/retrievalbench/internal/encoder/openai"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
)

// NewModel builds an embedding model from configuration, including the
// optional cache decorator.
func NewModel(cfg config.EncoderConfig, cacheCfg config.CacheConfig, log *logger.Logger) (Model, error) {
	var model Model

	switch cfg.Provider {
	case "openai":
		model = openai.New(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Logger:     log,
		})

	case "ollama":
		model = ollama.New(ollama.Config{
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})

	default:
		return nil, errors.ValidationError("unknown encoder provider: " + cfg.Provider)
	}

	switch cacheCfg.Type {
	case "", "none":
		return model, nil

	case "memory":
		return NewCachedModel(model, NewMemoryStore(cacheCfg.Size), cfg.Model), nil

	case "redis":
		store, err := NewRedisStore(cacheCfg.RedisURL, time.Duration(cacheCfg.TTL)*time.Second, log)
		if err != nil {
			return nil, errors.EncoderError("failed to create redis cache", err)
		}
		return NewCachedModel(model, store, cfg.Model), nil

	default:
		return nil, errors.ValidationError("unknown cache type: " + cacheCfg.Type)
	}
}

// NewEncoder builds the full encoder stack from configuration: provider
// model, cache decorator, and the dual-method adapter.
func NewEncoder(cfg config.EncoderConfig, cacheCfg config.CacheConfig, log *logger.Logger) (Encoder, error) {
	model, err := NewModel(cfg, cacheCfg, log)
	if err != nil {
		return nil, err
	}

	opts := []AdapterOption{
		WithBatchSize(cfg.BatchSize),
		WithLogger(log),
	}
	if cfg.Sep != "" {
		opts = append(opts, WithSep(cfg.Sep))
	}
	if cfg.Instruct {
		opts = append(opts, WithQueryInstruction(cfg.InstructTask))
	}

	return Resolve(model, opts...)
}
