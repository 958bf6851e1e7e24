package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the recommender.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Generate  GenerateConfig  `yaml:"generate"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CatalogConfig controls where catalog files are discovered.
type CatalogConfig struct {
	Root     string   `yaml:"root"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Provider  string        `yaml:"provider"`    // "openai", "local", "mock"
	Model     string        `yaml:"model"`       // e.g., "text-embedding-3-small"
	APIKeyEnv string        `yaml:"api_key_env"` // Environment variable for API key
	BaseURL   string        `yaml:"base_url"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, 0 = unlimited
	Cache     CacheConfig   `yaml:"cache"`
}

// CacheConfig selects the embedding cache backend.
type CacheConfig struct {
	Backend     string `yaml:"backend"` // "memory", "bolt", "redis"
	Path        string `yaml:"path"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`
}

// IndexConfig holds similarity index configuration.
type IndexConfig struct {
	Backend        string `yaml:"backend"` // "exact", "hnsw"
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
}

// RetrieveConfig holds candidate retrieval configuration.
type RetrieveConfig struct {
	MaxCandidates int     `yaml:"max_candidates"`
	MinViable     int     `yaml:"min_viable"`
	HistoryWeight float64 `yaml:"history_weight"`
	MMRLambda     float64 `yaml:"mmr_lambda"` // 1.0 disables diversification
}

// GenerateConfig holds generative model configuration.
type GenerateConfig struct {
	Provider       string        `yaml:"provider"` // "openai", "mock"
	Model          string        `yaml:"model"`
	APIKeyEnv      string        `yaml:"api_key_env"`
	BaseURL        string        `yaml:"base_url"`
	MaxTokens      int           `yaml:"max_tokens"`
	Temperature    float64       `yaml:"temperature"`
	MaxRetries     int           `yaml:"max_retries"`
	Timeout        time.Duration `yaml:"timeout"`
	RecommendCount int           `yaml:"recommend_count"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json", "console"
}

// MetricsConfig holds the Prometheus endpoint configuration.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Root:     "catalog",
			Includes: []string{"**/*.json", "**/*.yaml", "**/*.yml"},
			Excludes: []string{"**/.ragrec/**", "**/.git/**", "**/node_modules/**"},
		},
		Embedding: EmbeddingConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
			Timeout:   30 * time.Second,
			Cache: CacheConfig{
				Backend:     "memory",
				RedisPrefix: "ragrec:emb:",
			},
		},
		Index: IndexConfig{
			Backend:        "exact",
			M:              16,
			EfConstruction: 200,
			EfSearch:       50,
		},
		Retrieve: RetrieveConfig{
			MaxCandidates: 10,
			MinViable:     10,
			HistoryWeight: 0.7,
			MMRLambda:     1.0,
		},
		Generate: GenerateConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			APIKeyEnv:      "OPENAI_API_KEY",
			MaxTokens:      1000,
			Temperature:    0.7,
			MaxRetries:     2,
			Timeout:        60 * time.Second,
			RecommendCount: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for ragrec.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "ragrec.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".ragrec", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Validate checks values that would otherwise fail deep inside the pipeline.
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case "openai", "local", "mock":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Embedding.Cache.Backend {
	case "", "memory", "bolt", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Embedding.Cache.Backend)
	}
	switch c.Index.Backend {
	case "", "exact", "hnsw":
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	switch c.Generate.Provider {
	case "openai", "mock":
	default:
		return fmt.Errorf("unknown generate provider %q", c.Generate.Provider)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding.dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Retrieve.MaxCandidates <= 0 {
		return fmt.Errorf("retrieve.max_candidates must be positive, got %d", c.Retrieve.MaxCandidates)
	}
	if c.Retrieve.HistoryWeight < 0 || c.Retrieve.HistoryWeight > 1 {
		return fmt.Errorf("retrieve.history_weight must be within [0,1], got %v", c.Retrieve.HistoryWeight)
	}
	if c.Retrieve.MMRLambda < 0 || c.Retrieve.MMRLambda > 1 {
		return fmt.Errorf("retrieve.mmr_lambda must be within [0,1], got %v", c.Retrieve.MMRLambda)
	}
	if c.Generate.MaxRetries < 0 {
		return fmt.Errorf("generate.max_retries must not be negative, got %d", c.Generate.MaxRetries)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CacheDBPath returns the path to the persistent embedding cache.
func CacheDBPath(dir string) string {
	return filepath.Join(dir, ".ragrec", "embeddings.db")
}

// EnsureDataDir ensures the .ragrec directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".ragrec"), 0755)
}
