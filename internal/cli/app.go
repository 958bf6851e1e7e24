package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"ragrec/config"
	"ragrec/internal/adapter/cache"
	catalogadapter "ragrec/internal/adapter/catalog"
	"ragrec/internal/adapter/embedding"
	"ragrec/internal/adapter/fs"
	"ragrec/internal/adapter/index"
	"ragrec/internal/adapter/llm"
	"ragrec/internal/adapter/memstore"
	"ragrec/internal/adapter/resilience"
	"ragrec/internal/adapter/retriever"
	"ragrec/internal/logging"
	"ragrec/internal/port"
	"ragrec/internal/usecase"
)

// app is the composition root shared by the commands. Every long-lived
// collaborator (catalog, embedding cache, embedder, index factory, model)
// is built here and passed down explicitly.
type app struct {
	cfg      *config.Config
	catalog  *memstore.Catalog
	cache    port.EmbeddingCache
	provider *embedding.Provider
	indexOpt index.Options
	newIndex func() port.VectorIndex
	llm      port.LLM
}

// newApp loads the catalog and wires the embedding stack. The model client
// is only built when withLLM is set, so offline commands need no API key.
func newApp(ctx context.Context, withLLM bool) (*app, error) {
	cfg := GetConfig()
	a := &app{cfg: cfg}

	root := cfg.Catalog.Root
	if !filepath.IsAbs(root) {
		root = filepath.Join(GetRootDir(), root)
	}
	walker := fs.NewWalker(cfg.Catalog.Includes, cfg.Catalog.Excludes)
	cat, res, err := catalogadapter.NewLoader(walker).Load(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	for _, e := range res.Errors {
		logging.Warn().Str("error", e).Msg("catalog file skipped")
	}
	a.catalog = cat

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	dim := cfg.Embedding.Dimension
	if embedder != nil {
		dim = embedder.Dimension()
	}
	a.cache, err = newCache(ctx, cfg, embedder, dim)
	if err != nil {
		return nil, err
	}
	a.provider = embedding.NewProvider(embedder, a.cache, dim, cfg.Embedding.BatchSize)
	a.provider.SetTimeout(cfg.Embedding.Timeout)

	a.indexOpt = index.Options{
		M:              cfg.Index.M,
		EfConstruction: cfg.Index.EfConstruction,
		EfSearch:       cfg.Index.EfSearch,
	}
	a.newIndex, err = index.Factory(cfg.Index.Backend, a.provider, a.indexOpt)
	if err != nil {
		a.Close()
		return nil, err
	}

	if withLLM {
		a.llm, err = newLLM(cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

func (a *app) Close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		logging.Err(err).Msg("failed to close embedding cache")
	}
}

func (a *app) selector() *usecase.SelectUseCase {
	r := a.cfg.Retrieve
	var reranker port.DiversityReranker
	if r.MMRLambda < 1 {
		reranker = retriever.NewMMRReranker(r.MMRLambda)
	}
	return usecase.NewSelectUseCase(
		retriever.NewPrefilter(r.MinViable),
		retriever.NewInterestComposer(a.provider, r.HistoryWeight),
		a.provider,
		a.newIndex,
		reranker,
		a.cfg.Generate.RecommendCount,
	)
}

func (a *app) recommender() *usecase.RecommendUseCase {
	return usecase.NewRecommendUseCase(a.catalog, a.selector(), a.llm, usecase.RecommendOptions{
		MaxCandidates: a.cfg.Retrieve.MaxCandidates,
		MaxRetries:    a.cfg.Generate.MaxRetries,
		Timeout:       a.cfg.Generate.Timeout,
	})
}

// newEmbedder returns nil when embeddings are disabled; selection then
// ranks by attribute overlap.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	if !cfg.Embedding.Enabled {
		return nil, nil
	}

	var embedder port.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		e, err := embedding.NewOpenAIEmbedder(embedding.OpenAIOptions{
			APIKeyEnv: cfg.Embedding.APIKeyEnv,
			Model:     cfg.Embedding.Model,
			BaseURL:   cfg.Embedding.BaseURL,
			Dimension: cfg.Embedding.Dimension,
			BatchSize: cfg.Embedding.BatchSize,
			Timeout:   cfg.Embedding.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
		return embedding.NewGuardedEmbedder(e, cfg.Embedding.RateLimit, resilience.BreakerConfig{}), nil
	case "local":
		embedder = embedding.NewHashingEmbedder(cfg.Embedding.Dimension)
	case "mock":
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
	return embedder, nil
}

func newCache(ctx context.Context, cfg *config.Config, embedder port.Embedder, dim int) (port.EmbeddingCache, error) {
	stamp := cache.Stamp{Model: "none", Dimension: dim}
	if embedder != nil {
		stamp.Model = embedder.ModelName()
	}

	switch cfg.Embedding.Cache.Backend {
	case "", "memory":
		return cache.NewMemoryCache(), nil
	case "bolt":
		path := cfg.Embedding.Cache.Path
		if path == "" {
			if err := config.EnsureDataDir(GetRootDir()); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
			path = config.CacheDBPath(GetRootDir())
		}
		return cache.OpenBoltCache(path, stamp)
	case "redis":
		client, err := cache.DialRedis(ctx, cfg.Embedding.Cache.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Embedding.Cache.RedisAddr, err)
		}
		// Vectors from different models or dimensions never share keys.
		prefix := cfg.Embedding.Cache.RedisPrefix + stamp.Hash() + ":"
		return cache.NewRedisCache(client, prefix, 0), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Embedding.Cache.Backend)
	}
}

func newLLM(cfg *config.Config) (port.LLM, error) {
	switch cfg.Generate.Provider {
	case "openai":
		c, err := llm.NewOpenAIClient(llm.OpenAIOptions{
			APIKeyEnv:   cfg.Generate.APIKeyEnv,
			Model:       cfg.Generate.Model,
			BaseURL:     cfg.Generate.BaseURL,
			MaxTokens:   cfg.Generate.MaxTokens,
			Temperature: cfg.Generate.Temperature,
			Timeout:     cfg.Generate.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create model client: %w", err)
		}
		return llm.NewGuardedLLM(c, resilience.BreakerConfig{}), nil
	case "mock":
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unsupported generate provider: %s", cfg.Generate.Provider)
	}
}
