package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EmbeddingConfig selects the embedding provider and the vector shape the
// whole corpus is held to.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// LLMConfig selects the text-generation provider. KeyAlias picks which
// environment variable the provider resolves its API key from.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	KeyAlias string `yaml:"key_alias"`
}

type SummaryConfig struct {
	MaxContextChars int `yaml:"max_context_chars"`
	MaxTokens       int `yaml:"max_tokens"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	PapersDir    string          `yaml:"papers_dir"`
	DatabaseDir  string          `yaml:"database_dir"`
	DatabaseName string          `yaml:"database_name"`
	ChunkSize    int             `yaml:"chunk_size"`
	ChunkOverlap int             `yaml:"chunk_overlap"`
	TopK         int             `yaml:"top_k"`
	Embedding    EmbeddingConfig `yaml:"embedding"`
	LLM          LLMConfig       `yaml:"llm"`
	Summary      SummaryConfig   `yaml:"summary"`
	Log          LogConfig       `yaml:"log"`
}

// Load reads the config from path. A missing file yields the defaults; a
// malformed file is an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func Default() Config {
	return Config{
		PapersDir:    "./data/papers",
		DatabaseDir:  "./data/db",
		DatabaseName: "paperbase.db",
		ChunkSize:    1000,
		ChunkOverlap: 200,
		TopK:         5,
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
		LLM: LLMConfig{
			Provider: "mock",
			Model:    "gpt-4o-mini",
		},
		Summary: SummaryConfig{
			MaxContextChars: 10000,
			MaxTokens:       750,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d with chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.DatabaseName == "" {
		return fmt.Errorf("database_name is required")
	}
	return nil
}

// Save writes cfg to path so a default config can be materialized on first run.
func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func applyEnvOverrides(cfg *Config) {
	cfg.PapersDir = getenv("PAPERBASE_PAPERS_DIR", cfg.PapersDir)
	cfg.DatabaseDir = getenv("PAPERBASE_DB_DIR", cfg.DatabaseDir)
	cfg.DatabaseName = getenv("PAPERBASE_DB_NAME", cfg.DatabaseName)
	cfg.Embedding.Provider = getenv("PAPERBASE_EMBED_PROVIDER", cfg.Embedding.Provider)
	cfg.Embedding.Model = getenv("PAPERBASE_EMBED_MODEL", cfg.Embedding.Model)
	cfg.Embedding.Dimension = getenvInt("PAPERBASE_EMBED_DIM", cfg.Embedding.Dimension)
	cfg.LLM.Provider = getenv("PAPERBASE_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getenv("PAPERBASE_LLM_MODEL", cfg.LLM.Model)
	cfg.ChunkSize = getenvInt("PAPERBASE_CHUNK_SIZE", cfg.ChunkSize)
	cfg.ChunkOverlap = getenvInt("PAPERBASE_CHUNK_OVERLAP", cfg.ChunkOverlap)
	cfg.Log.Level = getenv("PAPERBASE_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getenv("PAPERBASE_LOG_FILE", cfg.Log.File)
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
