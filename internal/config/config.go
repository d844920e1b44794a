// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"RB_HOST" yaml:"host"`
	Port int    `envconfig:"RB_PORT" yaml:"port"`

	// Encoder configuration
	Encoder EncoderConfig `yaml:"encoder"`

	// Retrieval configuration
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Qdrant configuration (delegated retrieval backend)
	Qdrant QdrantConfig `yaml:"qdrant"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// EncoderConfig holds embedding model settings.
type EncoderConfig struct {
	Provider          string  `envconfig:"RB_ENCODER_PROVIDER" yaml:"provider"`
	Model             string  `envconfig:"RB_ENCODER_MODEL" yaml:"model"`
	BaseURL           string  `envconfig:"RB_ENCODER_BASE_URL" yaml:"base_url"`
	APIKey            string  `envconfig:"RB_ENCODER_API_KEY" yaml:"api_key"`
	Dimensions        int     `envconfig:"RB_ENCODER_DIMENSIONS" yaml:"dimensions"`
	BatchSize         int     `envconfig:"RB_ENCODER_BATCH_SIZE" yaml:"batch_size"`
	Sep               string  `envconfig:"RB_ENCODER_SEP" yaml:"sep"`
	Instruct          bool    `envconfig:"RB_ENCODER_INSTRUCT" yaml:"instruct"`
	InstructTask      string  `envconfig:"RB_ENCODER_INSTRUCT_TASK" yaml:"instruct_task"`
	RequestsPerSecond float64 `envconfig:"RB_ENCODER_RPS" yaml:"requests_per_second"`
}

// RetrievalConfig holds retrieval engine settings.
type RetrievalConfig struct {
	Engine          string `envconfig:"RB_RETRIEVAL_ENGINE" yaml:"engine"`
	ScoreFunction   string `envconfig:"RB_SCORE_FUNCTION" yaml:"score_function"`
	CorpusChunkSize int    `envconfig:"RB_CORPUS_CHUNK_SIZE" yaml:"corpus_chunk_size"`
	Parallel        bool   `envconfig:"RB_RETRIEVAL_PARALLEL" yaml:"parallel"`
	Workers         int    `envconfig:"RB_RETRIEVAL_WORKERS" yaml:"workers"`
}

// EvalConfig holds metric computation settings.
type EvalConfig struct {
	KValues            []int  `envconfig:"RB_K_VALUES" yaml:"k_values"`
	IgnoreIdenticalIDs bool   `envconfig:"RB_IGNORE_IDENTICAL_IDS" yaml:"ignore_identical_ids"`
	SaveRun            bool   `envconfig:"RB_SAVE_RUN" yaml:"save_run"`
	OutputDir          string `envconfig:"RB_OUTPUT_DIR" yaml:"output_dir"`
	TopK               int    `envconfig:"RB_TOP_K" yaml:"top_k"`
}

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	Host             string `envconfig:"QDRANT_HOST" yaml:"host"`
	Port             int    `envconfig:"QDRANT_PORT" yaml:"port"`
	APIKey           string `envconfig:"QDRANT_API_KEY" yaml:"api_key"`
	UseTLS           bool   `envconfig:"QDRANT_USE_TLS" yaml:"use_tls"`
	CollectionPrefix string `envconfig:"QDRANT_COLLECTION_PREFIX" yaml:"collection_prefix"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Type     string `envconfig:"RB_CACHE_TYPE" yaml:"type"`
	Size     int    `envconfig:"RB_CACHE_SIZE" yaml:"size"`
	TTL      int    `envconfig:"RB_CACHE_TTL" yaml:"ttl"` // seconds, 0 = no expiry
	RedisURL string `envconfig:"RB_REDIS_URL" yaml:"redis_url"`
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"RB_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"RB_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaGroup   string `envconfig:"RB_KAFKA_GROUP" yaml:"kafka_group"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RB_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RB_LOG_FORMAT" yaml:"format"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled bool   `envconfig:"RB_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath    string `envconfig:"RB_METRICS_PATH" yaml:"metrics_path"`
	RateLimit      int    `envconfig:"RB_RATE_LIMIT" yaml:"rate_limit"` // 0 = disabled
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Encoder = EncoderConfig{
		Provider:  "ollama",
		Model:     "nomic-embed-text",
		BatchSize: 128,
		Sep:       " ",
	}

	cfg.Retrieval = RetrievalConfig{
		Engine:          "exact",
		ScoreFunction:   "cos_sim",
		CorpusChunkSize: 50000,
		Workers:         4,
	}

	cfg.Eval = EvalConfig{
		KValues:            []int{1, 3, 5, 10, 100, 1000},
		IgnoreIdenticalIDs: true,
		OutputDir:          "results",
		TopK:               1000,
	}

	cfg.Qdrant = QdrantConfig{
		Host:             "localhost",
		Port:             6334,
		CollectionPrefix: "rb_",
	}

	cfg.Cache = CacheConfig{
		Type:     "memory",
		Size:     100000,
		TTL:      0,
		RedisURL: "redis://localhost:6379",
	}

	cfg.Bus = BusConfig{
		Type: "memory",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
		RateLimit:      0,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	validProviders := map[string]bool{"openai": true, "ollama": true}
	if !validProviders[c.Encoder.Provider] {
		errs = append(errs, fmt.Sprintf("invalid encoder provider: %s (must be openai or ollama)", c.Encoder.Provider))
	}

	if c.Encoder.BatchSize < 1 {
		errs = append(errs, "encoder batch_size must be positive")
	}

	validEngines := map[string]bool{"exact": true, "qdrant": true}
	if !validEngines[c.Retrieval.Engine] {
		errs = append(errs, fmt.Sprintf("invalid retrieval engine: %s (must be exact or qdrant)", c.Retrieval.Engine))
	}

	validScoreFns := map[string]bool{"cos_sim": true, "dot": true}
	if !validScoreFns[c.Retrieval.ScoreFunction] {
		errs = append(errs, fmt.Sprintf("invalid score function: %s (must be cos_sim or dot)", c.Retrieval.ScoreFunction))
	}

	if c.Retrieval.CorpusChunkSize < 1 {
		errs = append(errs, "corpus_chunk_size must be positive")
	}

	if c.Retrieval.Workers < 1 {
		errs = append(errs, "retrieval workers must be positive")
	}

	if len(c.Eval.KValues) == 0 {
		errs = append(errs, "k_values must not be empty")
	}
	for _, k := range c.Eval.KValues {
		if k < 1 {
			errs = append(errs, "k_values must all be positive")
			break
		}
	}

	if c.Eval.TopK < 1 {
		errs = append(errs, "top_k must be positive")
	}

	validCacheTypes := map[string]bool{"none": true, "memory": true, "redis": true}
	if !validCacheTypes[c.Cache.Type] {
		errs = append(errs, fmt.Sprintf("invalid cache type: %s (must be none, memory, or redis)", c.Cache.Type))
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
