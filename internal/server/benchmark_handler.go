package server

import (
	"encoding/json"
	"net/http"

	"github.com/ramunas-s/retrievalbench/internal/bus"
	"github.com/ramunas-s/retrievalbench/internal/config"
	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/evaluation"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
	"github.com/ramunas-s/retrievalbench/internal/qdrant"
	"github.com/ramunas-s/retrievalbench/internal/results"
	"github.com/ramunas-s/retrievalbench/internal/retrieval"
	"github.com/ramunas-s/retrievalbench/internal/task"
)

// BenchmarkHandler handles benchmark-related HTTP requests.
type BenchmarkHandler struct {
	cfg     *config.Config
	model   encoder.Model
	qdrant  *qdrant.Client
	bus     bus.Bus
	results *results.Service
	log     *logger.Logger
}

// NewBenchmarkHandler creates a benchmark handler.
func NewBenchmarkHandler(cfg *config.Config, model encoder.Model, qc *qdrant.Client, b bus.Bus, rs *results.Service, log *logger.Logger) *BenchmarkHandler {
	return &BenchmarkHandler{
		cfg:     cfg,
		model:   model,
		qdrant:  qc,
		bus:     b,
		results: rs,
		log:     log,
	}
}

// RunRequest describes a benchmark run. Unset fields fall back to the
// server configuration.
type RunRequest struct {
	// Task names the benchmark; it also names the run file and any Qdrant
	// collection.
	Task string `json:"task"`

	// DatasetDir is the directory holding corpus.jsonl, queries.jsonl and
	// qrels/<split>.tsv (per-language subdirectories when Multilingual).
	DatasetDir   string `json:"dataset_dir"`
	Multilingual bool   `json:"multilingual,omitempty"`

	Split    string `json:"split,omitempty"`
	Engine   string `json:"engine,omitempty"`
	Parallel bool   `json:"parallel,omitempty"`
	Workers  int    `json:"workers,omitempty"`
	KValues  []int  `json:"k_values,omitempty"`
	TopK     int    `json:"top_k,omitempty"`
	SaveRun  bool   `json:"save_run,omitempty"`
}

// HandleRun handles POST /v1/benchmark/run.
func (h *BenchmarkHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body"))
		return
	}

	if req.Task == "" {
		errors.WriteError(w, errors.ValidationError("task is required"))
		return
	}
	if req.DatasetDir == "" {
		errors.WriteError(w, errors.ValidationError("dataset_dir is required"))
		return
	}

	var (
		data *dataset.Dataset
		err  error
	)
	if req.Multilingual {
		data, err = dataset.LoadMultilingualDir(req.DatasetDir)
	} else {
		data, err = dataset.LoadDir(req.DatasetDir)
	}
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	opts := h.runOptions(req)

	result, err := task.New(req.Task, data).Run(r.Context(), h.model, opts)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	if h.results != nil {
		rec := results.NewRecord(result, opts.Engine, h.cfg.Encoder.Model)
		if err := h.results.Save(rec); err != nil {
			h.log.Warn("failed to persist run record", "run_id", result.RunID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, result)
}

// ListResultsResponse lists persisted run records.
type ListResultsResponse struct {
	Runs  []*results.Record `json:"runs"`
	Total int               `json:"total"`
}

// HandleListResults handles GET /v1/benchmark/results.
func (h *BenchmarkHandler) HandleListResults(w http.ResponseWriter, r *http.Request) {
	runs := h.results.List()
	writeJSON(w, http.StatusOK, ListResultsResponse{
		Runs:  runs,
		Total: len(runs),
	})
}

// HandleGetResult handles GET /v1/benchmark/results/{id}.
func (h *BenchmarkHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.results.Get(id)
	if err != nil {
		errors.WriteError(w, errors.NotFoundError("run "+id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleDeleteResult handles DELETE /v1/benchmark/results/{id}.
func (h *BenchmarkHandler) HandleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.results.Delete(id); err != nil {
		errors.WriteError(w, errors.NotFoundError("run "+id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// runOptions merges server configuration with per-request overrides.
func (h *BenchmarkHandler) runOptions(req RunRequest) task.Options {
	opts := task.Options{
		Split:              req.Split,
		Engine:             h.cfg.Retrieval.Engine,
		ScoreFunction:      h.cfg.Retrieval.ScoreFunction,
		CorpusChunkSize:    h.cfg.Retrieval.CorpusChunkSize,
		Parallel:           h.cfg.Retrieval.Parallel || req.Parallel,
		Workers:            h.cfg.Retrieval.Workers,
		KValues:            h.cfg.Eval.KValues,
		IgnoreIdenticalIDs: h.cfg.Eval.IgnoreIdenticalIDs,
		TopK:               h.cfg.Eval.TopK,
		SaveRun:            h.cfg.Eval.SaveRun || req.SaveRun,
		OutputDir:          h.cfg.Eval.OutputDir,
		EncoderOptions:     encoderOptions(h.cfg.Encoder, h.log),
		Qdrant:             h.qdrant,
		Bus:                h.bus,
		Logger:             h.log,
	}

	if req.Engine != "" {
		opts.Engine = req.Engine
	}
	if req.Workers > 0 {
		opts.Workers = req.Workers
	}
	if len(req.KValues) > 0 {
		opts.KValues = req.KValues
	}
	if req.TopK > 0 {
		opts.TopK = req.TopK
	}

	return opts
}

// encoderOptions builds adapter options from encoder configuration.
func encoderOptions(cfg config.EncoderConfig, log *logger.Logger) []encoder.AdapterOption {
	opts := []encoder.AdapterOption{
		encoder.WithBatchSize(cfg.BatchSize),
		encoder.WithLogger(log),
	}
	if cfg.Sep != "" {
		opts = append(opts, encoder.WithSep(cfg.Sep))
	}
	if cfg.Instruct {
		opts = append(opts, encoder.WithQueryInstruction(cfg.InstructTask))
	}
	return opts
}

// JudgmentsRequest scores a previously retrieved run against uploaded
// relevance judgments, without repeating retrieval.
type JudgmentsRequest struct {
	Qrels              dataset.Qrels     `json:"qrels"`
	Results            retrieval.Results `json:"results"`
	KValues            []int             `json:"k_values,omitempty"`
	Metric             string            `json:"metric,omitempty"`
	IgnoreIdenticalIDs *bool             `json:"ignore_identical_ids,omitempty"`
}

// JudgmentsResponse is the flat metric table for an uploaded run.
type JudgmentsResponse struct {
	Scores     evaluation.Scores `json:"scores,omitempty"`
	Custom     map[int]float64   `json:"custom,omitempty"`
	QueryCount int               `json:"query_count"`
	MainScore  float64           `json:"main_score,omitempty"`
}

// HandleJudgments handles POST /v1/benchmark/judgments.
func (h *BenchmarkHandler) HandleJudgments(w http.ResponseWriter, r *http.Request) {
	var req JudgmentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, errors.InvalidRequestError("invalid request body"))
		return
	}

	if len(req.Qrels) == 0 {
		errors.WriteError(w, errors.ValidationError("qrels are required"))
		return
	}
	if len(req.Results) == 0 {
		errors.WriteError(w, errors.ValidationError("results are required"))
		return
	}

	kValues := req.KValues
	if len(kValues) == 0 {
		kValues = h.cfg.Eval.KValues
	}
	ignore := h.cfg.Eval.IgnoreIdenticalIDs
	if req.IgnoreIdenticalIDs != nil {
		ignore = *req.IgnoreIdenticalIDs
	}

	if req.Metric != "" {
		custom, err := evaluation.EvaluateCustom(req.Qrels, req.Results, kValues, req.Metric, ignore)
		if err != nil {
			errors.WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, JudgmentsResponse{
			Custom:     custom,
			QueryCount: len(req.Qrels),
		})
		return
	}

	report := evaluation.Evaluate(req.Qrels, req.Results, kValues, ignore)
	writeJSON(w, http.StatusOK, JudgmentsResponse{
		Scores:     report.Flatten(),
		QueryCount: report.QueryCount,
		MainScore:  report.MainScore(),
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Ignore encoding errors - headers already sent
	_ = json.NewEncoder(w).Encode(v)
}
