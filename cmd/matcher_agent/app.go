package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/experience-matcher/internal/config"
	"github.com/jonathan/experience-matcher/internal/embeddings"
	"github.com/jonathan/experience-matcher/internal/extraction"
	"github.com/jonathan/experience-matcher/internal/fetch"
	"github.com/jonathan/experience-matcher/internal/llm"
	"github.com/jonathan/experience-matcher/internal/logger"
	"github.com/jonathan/experience-matcher/internal/matcher"
	"github.com/jonathan/experience-matcher/internal/queryopt"
	"github.com/jonathan/experience-matcher/internal/refiner"
	"github.com/jonathan/experience-matcher/internal/search"
	"github.com/jonathan/experience-matcher/internal/vectorstore"
)

// loadApp loads config and builds the logger shared by every command.
func loadApp() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if jsonLogs {
		cfg.LogJSON = true
	}

	log, err := logger.New(cfg.LogJSON, cfg.Verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return cfg, log, nil
}

// openStore builds the embedding provider and connects the vector store.
// The caller owns both and must Close them.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*vectorstore.QdrantStore, *embeddings.Provider, error) {
	provider, err := embeddings.NewProvider(embeddings.Config{
		Model:    cfg.EmbeddingModel,
		CacheDir: cfg.EmbeddingCache,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embeddings: %w", err)
	}

	store, err := vectorstore.Connect(ctx, vectorstore.QdrantConfig{
		Host:           cfg.QdrantHost,
		Port:           cfg.QdrantPort,
		UseTLS:         cfg.QdrantUseTLS,
		CollectionName: cfg.CollectionName,
		VectorSize:     provider.Dimension(),
	}, provider, log)
	if err != nil {
		_ = provider.Close()
		return nil, nil, fmt.Errorf("failed to connect to vector store: %w", err)
	}
	return store, provider, nil
}

// newLLMClient builds the Gemini client, or returns nil when no API key is
// configured. Callers must handle the nil (no-AI) case.
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	return llm.NewClient(ctx, nil, cfg.GeminiAPIKey)
}

func retryPolicy(cfg *config.Config) llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts:    cfg.RetryMaxAttempts,
		InitialBackoff: cfg.RetryInitialBackoff,
		MaxBackoff:     cfg.RetryMaxBackoff,
	}
}

// newExtractor wires the posting fetcher and optional AI enhancement.
func newExtractor(cfg *config.Config, client llm.Client, log *zap.Logger) *extraction.Extractor {
	fetcher := fetch.New(&fetch.Options{DisableBrowser: !cfg.UseBrowser}, log)
	return extraction.New(fetcher, client, retryPolicy(cfg), log)
}

// newMatcher assembles the full pipeline on top of an open store.
func newMatcher(cfg *config.Config, store vectorstore.Store, client llm.Client, log *zap.Logger) *matcher.Matcher {
	var experienceRefiner matcher.ExperienceRefiner
	if client != nil && !cfg.DisableRefinement {
		experienceRefiner = refiner.New(client, retryPolicy(cfg), log)
	}

	return matcher.New(
		newExtractor(cfg, client, log),
		queryopt.New(log),
		search.NewAggregator(store, log),
		experienceRefiner,
		matcher.Options{
			MaxExperiences:    cfg.MaxExperiences,
			MinRelevanceScore: cfg.MinRelevanceScore,
			MaxQueries:        cfg.MaxQueries,
			RefinementType:    refiner.RefinementType(cfg.RefinementType),
			DisableRefinement: cfg.DisableRefinement,
		},
		log,
	)
}
