// Package server exposes the benchmark harness over HTTP: trigger runs,
// score uploaded judgments, health and metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ramunas-s/retrievalbench/internal/bus"
	"github.com/ramunas-s/retrievalbench/internal/config"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
	"github.com/ramunas-s/retrievalbench/internal/pkg/middleware"
	"github.com/ramunas-s/retrievalbench/internal/qdrant"
	"github.com/ramunas-s/retrievalbench/internal/results"
)

// Server is the HTTP server that wires the benchmark components together.
type Server struct {
	cfg        *config.Config
	log        *logger.Logger
	version    string
	httpServer *http.Server

	bus     bus.Bus
	model   encoder.Model
	qdrant  *qdrant.Client
	results *results.Service

	handler *BenchmarkHandler

	mu      sync.RWMutex
	started bool
}

// Timeouts for the HTTP server. Benchmark runs can take a long time, so the
// write timeout is generous.
const (
	readTimeout     = 30 * time.Second
	writeTimeout    = 4 * time.Hour
	shutdownTimeout = 30 * time.Second
)

// New creates a server with all dependencies.
func New(cfg *config.Config, version string, log *logger.Logger) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		log:     log,
		version: version,
	}

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create event bus: %w", err)
	}
	s.bus = b

	model, err := encoder.NewModel(cfg.Encoder, cfg.Cache, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder model: %w", err)
	}
	s.model = model

	if cfg.Retrieval.Engine == "qdrant" {
		qc, err := qdrant.NewClient(qdrant.ClientConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
			Prefix: cfg.Qdrant.CollectionPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create qdrant client: %w", err)
		}
		s.qdrant = qc
	}

	rs, err := results.NewService(results.ServiceConfig{
		StoragePath: filepath.Join(cfg.Eval.OutputDir, "runs"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create results service: %w", err)
	}
	s.results = rs

	s.handler = NewBenchmarkHandler(cfg, s.model, s.qdrant, s.bus, rs, log)

	return s, nil
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("server already started")
	}
	s.started = true
	s.mu.Unlock()

	handler := s.routes()

	addr := s.cfg.Address()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	s.log.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error("HTTP shutdown error", "error", err)
		}
	}

	if s.qdrant != nil {
		s.qdrant.Close()
	}
	if s.bus != nil {
		s.bus.Close()
	}

	s.started = false
	s.log.Info("server stopped")

	return nil
}

// routes configures all HTTP routes.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/benchmark/run", s.handler.HandleRun)
	mux.HandleFunc("POST /v1/benchmark/judgments", s.handler.HandleJudgments)
	mux.HandleFunc("GET /v1/benchmark/results", s.handler.HandleListResults)
	mux.HandleFunc("GET /v1/benchmark/results/{id}", s.handler.HandleGetResult)
	mux.HandleFunc("DELETE /v1/benchmark/results/{id}", s.handler.HandleDeleteResult)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.cfg.Observability.MetricsEnabled {
		path := s.cfg.Observability.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.Handler())
	}

	var handler http.Handler = mux
	if s.cfg.Observability.RateLimit > 0 {
		rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: float64(s.cfg.Observability.RateLimit),
			Burst:             s.cfg.Observability.RateLimit * 2,
			CleanupInterval:   time.Minute,
		})
		handler = rl.Middleware(handler)
	}

	return s.withLogging(handler)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

// withLogging wraps a handler with request logging.
func (s *Server) withLogging(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(wrapped, r)

		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
