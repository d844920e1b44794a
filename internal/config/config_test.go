package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("RB_PORT", "9090")
	os.Setenv("RB_LOG_LEVEL", "debug")
	os.Setenv("RB_ENCODER_PROVIDER", "openai")
	defer func() {
		os.Unsetenv("RB_PORT")
		os.Unsetenv("RB_LOG_LEVEL")
		os.Unsetenv("RB_ENCODER_PROVIDER")
	}()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Encoder.Provider != "openai" {
		t.Errorf("Encoder.Provider = %s, want openai", cfg.Encoder.Provider)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
log:
  level: warn
  format: json
encoder:
  provider: openai
  model: text-embedding-3-small
  dimensions: 512
retrieval:
  engine: qdrant
  score_function: dot
qdrant:
  host: custom
  port: 7334
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}
	if cfg.Encoder.Model != "text-embedding-3-small" {
		t.Errorf("Encoder.Model = %s", cfg.Encoder.Model)
	}
	if cfg.Encoder.Dimensions != 512 {
		t.Errorf("Encoder.Dimensions = %d, want 512", cfg.Encoder.Dimensions)
	}
	if cfg.Retrieval.Engine != "qdrant" {
		t.Errorf("Retrieval.Engine = %s, want qdrant", cfg.Retrieval.Engine)
	}
	if cfg.Retrieval.ScoreFunction != "dot" {
		t.Errorf("Retrieval.ScoreFunction = %s, want dot", cfg.Retrieval.ScoreFunction)
	}
	if cfg.Qdrant.Host != "custom" || cfg.Qdrant.Port != 7334 {
		t.Errorf("Qdrant = %s:%d", cfg.Qdrant.Host, cfg.Qdrant.Port)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.Retrieval.CorpusChunkSize != 50000 {
		t.Errorf("CorpusChunkSize = %d, want 50000", cfg.Retrieval.CorpusChunkSize)
	}
	if !cfg.Eval.IgnoreIdenticalIDs {
		t.Error("IgnoreIdenticalIDs should default to true")
	}
	want := []int{1, 3, 5, 10, 100, 1000}
	if len(cfg.Eval.KValues) != len(want) {
		t.Fatalf("KValues = %v, want %v", cfg.Eval.KValues, want)
	}
	for i, k := range want {
		if cfg.Eval.KValues[i] != k {
			t.Errorf("KValues[%d] = %d, want %d", i, cfg.Eval.KValues[i], k)
		}
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid defaults",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name: "invalid port",
			modify: func(c *Config) {
				c.Port = 0
			},
			wantErr: true,
		},
		{
			name: "invalid provider",
			modify: func(c *Config) {
				c.Encoder.Provider = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid engine",
			modify: func(c *Config) {
				c.Retrieval.Engine = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid score function",
			modify: func(c *Config) {
				c.Retrieval.ScoreFunction = "euclidean"
			},
			wantErr: true,
		},
		{
			name: "empty k values",
			modify: func(c *Config) {
				c.Eval.KValues = nil
			},
			wantErr: true,
		},
		{
			name: "negative k value",
			modify: func(c *Config) {
				c.Eval.KValues = []int{10, -1}
			},
			wantErr: true,
		},
		{
			name: "invalid cache type",
			modify: func(c *Config) {
				c.Cache.Type = "invalid"
			},
			wantErr: true,
		},
		{
			name: "invalid bus type",
			modify: func(c *Config) {
				c.Bus.Type = "nats"
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			modify: func(c *Config) {
				c.Log.Level = "invalid"
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			setDefaults(cfg)
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 9000}
	if got := cfg.Address(); got != "127.0.0.1:9000" {
		t.Errorf("Address() = %s", got)
	}
}
