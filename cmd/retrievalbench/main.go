// Package main provides the retrievalbench binary: run retrieval benchmarks
// from the command line or serve them over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ramunas-s/retrievalbench/internal/bus"
	"github.com/ramunas-s/retrievalbench/internal/client"
	"github.com/ramunas-s/retrievalbench/internal/config"
	"github.com/ramunas-s/retrievalbench/internal/dataset"
	"github.com/ramunas-s/retrievalbench/internal/encoder"
	"github.com/ramunas-s/retrievalbench/internal/evaluation"
	"github.com/ramunas-s/retrievalbench/internal/metrics"
	"github.com/ramunas-s/retrievalbench/internal/pkg/logger"
	"github.com/ramunas-s/retrievalbench/internal/qdrant"
	"github.com/ramunas-s/retrievalbench/internal/server"
	"github.com/ramunas-s/retrievalbench/internal/task"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "retrievalbench",
		Short: "Retrieval benchmark harness for text-embedding models",
		Long: `retrievalbench adapts text-embedding models to a standardized
retrieval evaluation pipeline: encode a corpus and a query set, run dense
nearest-neighbor search, and score the ranking against graded relevance
judgments (nDCG, MAP, Recall, Precision, MRR at multiple cutoffs).

Run 'retrievalbench run' to benchmark a dataset directory.
Run 'retrievalbench serve' to expose runs over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		runCmd(),
		serveCmd(),
		resultsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark against a dataset directory",
		Long: `Run retrieval and evaluation for one benchmark task.

The dataset directory follows the BEIR layout: corpus.jsonl, queries.jsonl
and qrels/<split>.tsv. Multilingual datasets keep one such layout per
language subdirectory.

Examples:
  retrievalbench run --task scifact --dataset ./data/scifact
  retrievalbench run --task scifact --dataset ./data/scifact --parallel
  retrievalbench run --task miracl --dataset ./data/miracl --multilingual
  retrievalbench run --task scifact --dataset ./data/scifact --engine qdrant`,
		RunE: runBenchmark,
	}

	cmd.Flags().String("task", "", "benchmark task name (required)")
	cmd.Flags().String("dataset", "", "dataset directory (required)")
	cmd.Flags().Bool("multilingual", false, "dataset has per-language subdirectories")
	cmd.Flags().String("split", "test", "dataset split to evaluate")
	cmd.Flags().String("engine", "", "retrieval engine (exact, qdrant)")
	cmd.Flags().Bool("parallel", false, "shard exact search across workers")
	cmd.Flags().Int("workers", 0, "worker count for parallel search")
	cmd.Flags().IntSlice("k", nil, "metric cutoffs (default 1,3,5,10,100,1000)")
	cmd.Flags().Bool("save-run", false, "write the retrieval run to the output directory")
	cmd.Flags().String("output", "", "output directory for run files")
	cmd.Flags().Bool("json", false, "print scores as JSON")

	cmd.MarkFlagRequired("task")
	cmd.MarkFlagRequired("dataset")

	return cmd
}

func runBenchmark(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	taskName, _ := cmd.Flags().GetString("task")
	datasetDir, _ := cmd.Flags().GetString("dataset")
	multilingual, _ := cmd.Flags().GetBool("multilingual")
	split, _ := cmd.Flags().GetString("split")
	engine, _ := cmd.Flags().GetString("engine")
	parallel, _ := cmd.Flags().GetBool("parallel")
	workers, _ := cmd.Flags().GetInt("workers")
	kValues, _ := cmd.Flags().GetIntSlice("k")
	saveRun, _ := cmd.Flags().GetBool("save-run")
	output, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	metrics.Register()

	model, err := encoder.NewModel(cfg.Encoder, cfg.Cache, log)
	if err != nil {
		return err
	}

	var data *dataset.Dataset
	if multilingual {
		data, err = dataset.LoadMultilingualDir(datasetDir)
	} else {
		data, err = dataset.LoadDir(datasetDir)
	}
	if err != nil {
		return err
	}

	opts := task.Options{
		Split:              split,
		Engine:             cfg.Retrieval.Engine,
		ScoreFunction:      cfg.Retrieval.ScoreFunction,
		CorpusChunkSize:    cfg.Retrieval.CorpusChunkSize,
		Parallel:           cfg.Retrieval.Parallel || parallel,
		Workers:            cfg.Retrieval.Workers,
		KValues:            cfg.Eval.KValues,
		IgnoreIdenticalIDs: cfg.Eval.IgnoreIdenticalIDs,
		TopK:               cfg.Eval.TopK,
		SaveRun:            cfg.Eval.SaveRun || saveRun,
		OutputDir:          cfg.Eval.OutputDir,
		EncoderOptions:     adapterOptions(cfg.Encoder, log),
		Logger:             log,
	}
	if engine != "" {
		opts.Engine = engine
	}
	if workers > 0 {
		opts.Workers = workers
	}
	if len(kValues) > 0 {
		opts.KValues = kValues
	}
	if output != "" {
		opts.OutputDir = output
	}

	if opts.Engine == task.EngineQdrant {
		qc, err := qdrant.NewClient(qdrant.ClientConfig{
			Host:   cfg.Qdrant.Host,
			Port:   cfg.Qdrant.Port,
			APIKey: cfg.Qdrant.APIKey,
			UseTLS: cfg.Qdrant.UseTLS,
			Prefix: cfg.Qdrant.CollectionPrefix,
		})
		if err != nil {
			return err
		}
		defer qc.Close()
		opts.Qdrant = qc
	}

	b, err := bus.NewBus(cfg.Bus, log)
	if err != nil {
		return err
	}
	defer b.Close()
	opts.Bus = b

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := task.New(taskName, data).Run(ctx, model, opts)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printResult(result)
	return nil
}

// printResult renders the flat metric tables.
func printResult(result *task.Result) {
	fmt.Printf("task: %s  run: %s  split: %s\n", result.Task, result.RunID, result.Split)
	fmt.Printf("retrieval: %.2fs\n\n", result.RetrievalSeconds)

	if len(result.ByLanguage) > 0 {
		langs := make([]string, 0, len(result.ByLanguage))
		for lang := range result.ByLanguage {
			langs = append(langs, lang)
		}
		sort.Strings(langs)

		for _, lang := range langs {
			fmt.Printf("[%s]\n", lang)
			printScores(result.ByLanguage[lang])
			fmt.Println()
		}
		fmt.Println("[average]")
	}

	printScores(result.Scores)
	fmt.Printf("\nmain score (ndcg@10): %.5f\n", result.MainScore)
}

func printScores(scores evaluation.Scores) {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		mi, ki := splitScoreKey(keys[i])
		mj, kj := splitScoreKey(keys[j])
		if mi != mj {
			return mi < mj
		}
		return ki < kj
	})

	for _, key := range keys {
		fmt.Printf("  %-18s %.5f\n", key, scores[key])
	}
}

// splitScoreKey splits "ndcg_at_10" into ("ndcg", 10) for sorting.
func splitScoreKey(key string) (string, int) {
	idx := strings.LastIndex(key, "_at_")
	if idx < 0 {
		return key, 0
	}
	var k int
	fmt.Sscanf(key[idx+4:], "%d", &k)
	return key[:idx], k
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP benchmark server",
		Long: `Start the HTTP server exposing benchmark runs and scoring:

  POST /v1/benchmark/run        run a benchmark for a dataset directory
  POST /v1/benchmark/judgments  score an uploaded run against judgments
  GET  /healthz                 health check
  GET  /metrics                 Prometheus metrics`,
		RunE: runServer,
	}

	cmd.Flags().IntP("port", "p", 0, "HTTP server port (overrides config)")
	cmd.Flags().String("host", "", "HTTP server host (overrides config)")

	return cmd
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	port, _ := cmd.Flags().GetInt("port")
	host, _ := cmd.Flags().GetString("host")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port > 0 {
		cfg.Port = port
	}
	if host != "" {
		cfg.Host = host
	}

	logLevel := cfg.Log.Level
	if verbose {
		logLevel = "debug"
	}
	log := logger.New(logLevel, cfg.Log.Format)

	metrics.Register()

	srv, err := server.New(cfg, version, log)
	if err != nil {
		return err
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return srv.Stop(context.Background())
	}
}

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect persisted runs on a benchmark server",
	}

	cmd.PersistentFlags().String("server", "http://localhost:8080", "benchmark server URL")

	apiClient := func(cmd *cobra.Command) *client.Client {
		serverURL, _ := cmd.Flags().GetString("server")
		cfg := client.DefaultConfig()
		cfg.BaseURL = serverURL
		cfg.Timeout = 30 * time.Second
		return client.New(cfg)
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, err := apiClient(cmd).ListResults(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs")
				return nil
			}
			for _, rec := range runs {
				fmt.Printf("%s  %-20s %-8s %-8s ndcg@10=%.5f  %s\n",
					rec.RunID, rec.Task, rec.Split, rec.Engine,
					rec.MainScore, rec.CreatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	getCmd := &cobra.Command{
		Use:   "get <run-id>",
		Short: "Print the full score table for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := apiClient(cmd).GetResult(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(&rec.Result)
			return nil
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a persisted run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return apiClient(cmd).DeleteResult(cmd.Context(), args[0])
		},
	}

	cmd.AddCommand(listCmd, getCmd, deleteCmd)
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("retrievalbench %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

func adapterOptions(cfg config.EncoderConfig, log *logger.Logger) []encoder.AdapterOption {
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
