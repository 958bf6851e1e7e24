package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Retrieve.MaxCandidates != 10 {
		t.Errorf("expected MaxCandidates=10, got %d", cfg.Retrieve.MaxCandidates)
	}
	if cfg.Retrieve.MinViable != 10 {
		t.Errorf("expected MinViable=10, got %d", cfg.Retrieve.MinViable)
	}
	if cfg.Retrieve.HistoryWeight != 0.7 {
		t.Errorf("expected HistoryWeight=0.7, got %f", cfg.Retrieve.HistoryWeight)
	}
	if cfg.Embedding.Dimension != 1536 {
		t.Errorf("expected Dimension=1536, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Generate.MaxRetries != 2 {
		t.Errorf("expected MaxRetries=2, got %d", cfg.Generate.MaxRetries)
	}
	if cfg.Index.Backend != "exact" {
		t.Errorf("expected exact index backend, got %q", cfg.Index.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_NonExistent(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	if err != nil {
		t.Errorf("expected no error for non-existent file, got %v", err)
	}
	if cfg == nil {
		t.Error("expected default config, got nil")
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "ragrec.yaml")

	content := `
embedding:
  provider: local
  dimension: 256
  timeout: 5s
index:
  backend: hnsw
  ef_search: 80
retrieve:
  max_candidates: 20
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Embedding.Provider != "local" {
		t.Errorf("expected provider=local, got %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Dimension != 256 {
		t.Errorf("expected Dimension=256, got %d", cfg.Embedding.Dimension)
	}
	if cfg.Embedding.Timeout != 5*time.Second {
		t.Errorf("expected Timeout=5s, got %v", cfg.Embedding.Timeout)
	}
	if cfg.Index.Backend != "hnsw" || cfg.Index.EfSearch != 80 {
		t.Errorf("unexpected index config: %+v", cfg.Index)
	}
	// Unset fields keep their defaults.
	if cfg.Index.M != 16 {
		t.Errorf("expected M=16, got %d", cfg.Index.M)
	}
	if cfg.Retrieve.MaxCandidates != 20 {
		t.Errorf("expected MaxCandidates=20, got %d", cfg.Retrieve.MaxCandidates)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown index", "index:\n  backend: faiss\n"},
		{"unknown embedder", "embedding:\n  provider: voyage\n"},
		{"bad weight", "retrieve:\n  history_weight: 1.5\n"},
		{"zero candidates", "retrieve:\n  max_candidates: 0\n"},
		{"negative retries", "generate:\n  max_retries: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ragrec.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromDir(t *testing.T) {
	tmpDir := t.TempDir()
	if err := EnsureDataDir(tmpDir); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(tmpDir, ".ragrec", "config.yaml")

	content := `
generate:
  recommend_count: 3
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Generate.RecommendCount != 3 {
		t.Errorf("expected RecommendCount=3, got %d", cfg.Generate.RecommendCount)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragrec.yaml")
	cfg := DefaultConfig()
	cfg.Embedding.Cache.Backend = "bolt"

	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Embedding.Cache.Backend != "bolt" {
		t.Errorf("expected bolt backend, got %q", loaded.Embedding.Cache.Backend)
	}
	if loaded.Generate.Timeout != cfg.Generate.Timeout {
		t.Errorf("timeout not preserved: %v vs %v", loaded.Generate.Timeout, cfg.Generate.Timeout)
	}
}

func TestCacheDBPath(t *testing.T) {
	path := CacheDBPath("/home/user/shop")
	expected := filepath.Join("/home/user/shop", ".ragrec", "embeddings.db")
	if path != expected {
		t.Errorf("expected %s, got %s", expected, path)
	}
}
