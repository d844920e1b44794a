// Package task orchestrates benchmark runs: it adapts a model into an
// encoder, runs retrieval over each split, scores the results against the
// relevance judgments, and reports flat metric tables.
package task

import (
	"context"
	"time"

	"github.com/ramunas-s/retrievalbench/internal/bus"
	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/evaluation"
	"github.com/ramunas-s/retrievalbench/internal/metrics"
	"github.com/ramunas-s/retrievalbench/internal/pkg/errors"
	"github.com/ramunas-s/retrievalbench/internal/pkg/hash"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
	"github.com/ramunas-s/retrievalbench/internal/qdrant"
	"github.com/ramunas-s/retrievalbench/internal/retrieval"
)

// Retrieval engine names.
const (
	EngineExact  = "exact"
	EngineQdrant = "qdrant"
)

// DefaultSplit is evaluated when no split is configured.
const DefaultSplit = "test"

// Task binds a named benchmark to its dataset.
type Task struct {
	Name string
	Data *dataset.Dataset
}

// New creates a benchmark task.
func New(name string, data *dataset.Dataset) *Task {
	return &Task{Name: name, Data: data}
}

// Options control how a benchmark run executes.
type Options struct {
	// Split is the dataset split to evaluate. Defaults to "test".
	Split string

	// Engine selects the retrieval backend: exact (default) or qdrant.
	Engine string

	// ScoreFunction names the similarity measure for exact search.
	ScoreFunction string

	// CorpusChunkSize bounds how many documents are encoded per scan step.
	CorpusChunkSize int

	// Parallel shards exact search chunks across Workers goroutines.
	Parallel bool
	Workers  int

	// KValues are the metric cutoffs. Defaults to 1,3,5,10,100,1000.
	KValues []int

	// IgnoreIdenticalIDs drops retrieved documents whose ID equals the
	// query ID before scoring.
	IgnoreIdenticalIDs bool

	// TopK is the number of results kept per query.
	TopK int

	// SaveRun writes the retrieval run to OutputDir after scoring.
	SaveRun   bool
	OutputDir string

	// EncoderOptions tune the adapter wrapped around plain models.
	EncoderOptions []encoder.AdapterOption

	// Searcher overrides engine selection entirely when set.
	Searcher retrieval.Searcher

	// Qdrant is required when Engine is "qdrant".
	Qdrant *qdrant.Client

	// Bus receives run lifecycle events when set.
	Bus bus.Bus

	Logger *logger.Logger
}

// DefaultOptions returns the standard run configuration.
func DefaultOptions() Options {
	return Options{
		Split:              DefaultSplit,
		Engine:             EngineExact,
		ScoreFunction:      retrieval.ScoreCosine,
		KValues:            evaluation.DefaultKValues,
		IgnoreIdenticalIDs: true,
		TopK:               retrieval.DefaultTopK,
		OutputDir:          "results",
	}
}

// Result holds the outcome of a benchmark run.
type Result struct {
	Task  string `json:"task"`
	RunID string `json:"run_id"`
	Split string `json:"split"`

	// Scores is the flat metric table. For multilingual datasets it holds
	// the macro-average over languages.
	Scores evaluation.Scores `json:"scores"`

	// ByLanguage holds per-language tables for multilingual datasets.
	ByLanguage map[string]evaluation.Scores `json:"by_language,omitempty"`

	// MainScore is nDCG@10, the headline number.
	MainScore float64 `json:"main_score"`

	// RetrievalSeconds is time spent encoding and searching.
	RetrievalSeconds float64 `json:"retrieval_seconds"`
}

// Run executes the benchmark for the given model. The model must satisfy
// either encoder.Encoder or encoder.Model; plain models are wrapped in the
// adapter automatically.
func (t *Task) Run(ctx context.Context, model any, opts Options) (*Result, error) {
	fillDefaults(&opts)

	runID := hash.RunID(t.Name, time.Now())
	log := opts.Logger.WithTask(t.Name).WithRun(runID)

	enc, err := encoder.Resolve(model, opts.EncoderOptions...)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(t.Name, "error").Inc()
		return nil, err
	}

	publish(ctx, opts.Bus, log, bus.TopicRunStarted, runID, t.Name, nil)

	result, err := t.run(ctx, enc, runID, log, opts)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(t.Name, "error").Inc()
		publish(ctx, opts.Bus, log, bus.TopicRunFailed, runID, t.Name, map[string]any{"error": err.Error()})
		return nil, err
	}

	metrics.RunsTotal.WithLabelValues(t.Name, "success").Inc()
	publish(ctx, opts.Bus, log, bus.TopicRunCompleted, runID, t.Name, result)

	return result, nil
}

func (t *Task) run(ctx context.Context, enc encoder.Encoder, runID string, log *logger.Logger, opts Options) (*Result, error) {
	result := &Result{
		Task:  t.Name,
		RunID: runID,
		Split: opts.Split,
	}

	if t.Data.Multilingual() {
		result.ByLanguage = make(map[string]evaluation.Scores)
		sums := make(map[string]float64)
		var mainSum float64

		langs := t.Data.LanguageNames()
		for _, lang := range langs {
			split := t.Data.LanguageSplit(lang, opts.Split)
			if split == nil {
				return nil, errors.NotFoundError("split " + opts.Split + " for language " + lang)
			}

			report, elapsed, err := t.evaluateSplit(ctx, enc, split, lang, log.WithLanguage(lang), opts)
			if err != nil {
				return nil, err
			}

			scores := report.Flatten()
			result.ByLanguage[lang] = scores
			result.RetrievalSeconds += elapsed.Seconds()
			mainSum += report.MainScore()
			for k, v := range scores {
				sums[k] += v
			}
		}

		n := float64(len(langs))
		result.Scores = make(evaluation.Scores, len(sums))
		for k, v := range sums {
			result.Scores[k] = v / n
		}
		result.MainScore = mainSum / n

		return result, nil
	}

	split := t.Data.Split(opts.Split)
	if split == nil {
		return nil, errors.NotFoundError("split " + opts.Split)
	}

	report, elapsed, err := t.evaluateSplit(ctx, enc, split, "", log, opts)
	if err != nil {
		return nil, err
	}

	result.Scores = report.Flatten()
	result.MainScore = report.MainScore()
	result.RetrievalSeconds = elapsed.Seconds()

	return result, nil
}

// evaluateSplit runs retrieval and scoring for one split. lang is empty for
// monolingual datasets.
func (t *Task) evaluateSplit(ctx context.Context, enc encoder.Encoder, split *dataset.Split, lang string, log *logger.Logger, opts Options) (*evaluation.Report, time.Duration, error) {
	searcher, err := t.searcher(enc, lang, log, opts)
	if err != nil {
		return nil, 0, err
	}

	log.Info("starting retrieval",
		"engine", opts.Engine,
		"documents", len(split.Corpus),
		"queries", len(split.Queries),
	)

	start := time.Now()
	results, err := searcher.Search(ctx, split.Corpus, split.Queries)
	if err != nil {
		return nil, 0, err
	}
	elapsed := time.Since(start)

	metrics.RetrievalDuration.WithLabelValues(opts.Engine).Observe(elapsed.Seconds())
	log.Info("retrieval finished", "elapsed", elapsed)

	if opts.SaveRun {
		path, err := evaluation.SaveRunFile(opts.OutputDir, t.Name, lang, results, opts.TopK)
		if err != nil {
			return nil, 0, err
		}
		log.Info("saved run file", "path", path)
	}

	report := evaluation.Evaluate(split.Qrels, results, opts.KValues, opts.IgnoreIdenticalIDs)
	log.Info("evaluation finished",
		"queries", report.QueryCount,
		"main_score", report.MainScore(),
	)

	return report, elapsed, nil
}

// searcher builds the retrieval backend for a run.
func (t *Task) searcher(enc encoder.Encoder, lang string, log *logger.Logger, opts Options) (retrieval.Searcher, error) {
	if opts.Searcher != nil {
		return opts.Searcher, nil
	}

	switch opts.Engine {
	case EngineExact:
		cfg := retrieval.ExactConfig{
			ChunkSize:     opts.CorpusChunkSize,
			TopK:          opts.TopK,
			ScoreFunction: opts.ScoreFunction,
		}
		if opts.Parallel {
			return retrieval.NewParallelExactSearch(enc, cfg, opts.Workers, log), nil
		}
		return retrieval.NewExactSearch(enc, cfg, log), nil

	case EngineQdrant:
		if opts.Qdrant == nil {
			return nil, errors.ValidationError("qdrant engine selected but no client configured")
		}
		collection := t.Name
		if lang != "" {
			collection = t.Name + "_" + lang
		}
		return retrieval.NewDelegatedSearch(enc, opts.Qdrant, retrieval.DelegatedConfig{
			Collection: collection,
			TopK:       opts.TopK,
		}, log), nil

	default:
		return nil, errors.ValidationError("unknown retrieval engine: " + opts.Engine)
	}
}

func fillDefaults(opts *Options) {
	if opts.Split == "" {
		opts.Split = DefaultSplit
	}
	if opts.Engine == "" {
		opts.Engine = EngineExact
	}
	if len(opts.KValues) == 0 {
		opts.KValues = evaluation.DefaultKValues
	}
	if opts.TopK <= 0 {
		opts.TopK = retrieval.DefaultTopK
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "results"
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
}

func publish(ctx context.Context, b bus.Bus, log *logger.Logger, topic, runID, task string, payload any) {
	if b == nil {
		return
	}
	err := b.Publish(ctx, topic, bus.Event{
		ID:        runID,
		Type:      topic,
		Source:    "retrievalbench",
		Timestamp: time.Now().Unix(),
		Payload:   payload,
	})
	if err != nil {
		log.Warn("failed to publish run event", "topic", topic, "task", task, "error", err)
	}
}
