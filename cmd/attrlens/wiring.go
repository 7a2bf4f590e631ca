package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/attrlens/backend/config"
	"github.com/attrlens/backend/internal/domain"
	"github.com/attrlens/backend/internal/infrastructure/cache"
	"github.com/attrlens/backend/internal/infrastructure/llm"
	"github.com/attrlens/backend/internal/infrastructure/schemafile"
	"github.com/attrlens/backend/internal/usecase"
)

// cacheSweepInterval is how often the memory cache drops expired entries
const cacheSweepInterval = 5 * time.Minute

// closer releases resources held by a wired component
type closer func()

// newCache builds the configured cache. A nil repository disables caching.
func newCache(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, closer, error) {
	switch cfg.Type {
	case "memory":
		c := cache.NewMemoryCache(cacheSweepInterval)
		return c, func() { _ = c.Close() }, nil
	case "redis":
		c, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	case "none":
		return nil, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Type)
}

// newCompletionClient builds the model client from the llm config
func newCompletionClient(cfg config.LLMConfig, logger zerolog.Logger) (*llm.Client, error) {
	llmConfig := llm.Config{
		Provider:          cfg.Provider,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		APIKey:            cfg.APIKey,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		Timeout:           cfg.Timeout,
		JSONMode:          cfg.JSONMode,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}

	model, err := llm.NewModel(llmConfig)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(model, llmConfig, logger), nil
}

// newPipeline loads the taxonomy and wires the extraction stages around client
func newPipeline(cfg *config.Config, client domain.CompletionClient) (*usecase.Pipeline, error) {
	schema, err := schemafile.Load(cfg.Schema.Path)
	if err != nil {
		return nil, err
	}

	normalizer, err := usecase.NewNormalizer(usecase.MatchConfig{
		Threshold: cfg.Matching.Threshold,
		Metric:    cfg.Matching.Metric,
	})
	if err != nil {
		return nil, err
	}

	return usecase.NewPipeline(schema, client, usecase.NewPromptAssembler(cfg.Schema.PromptTemplate), normalizer), nil
}

// newExtractionService wires config, cache, model client and pipeline.
// The returned closer must be called once the service is no longer used.
func newExtractionService(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*usecase.ExtractionService, closer, error) {
	client, err := newCompletionClient(cfg.LLM, logger)
	if err != nil {
		return nil, nil, err
	}

	pipeline, err := newPipeline(cfg, client)
	if err != nil {
		return nil, nil, err
	}

	repo, closeCache, err := newCache(ctx, cfg.Cache)
	if err != nil {
		return nil, nil, err
	}

	logger.Info().
		Str("provider", cfg.LLM.Provider).
		Str("model", cfg.LLM.Model).
		Str("schema", cfg.Schema.Path).
		Int("categories", len(pipeline.Schema().Categories())).
		Str("metric", cfg.Matching.Metric).
		Float64("threshold", cfg.Matching.Threshold).
		Str("cache", cfg.Cache.Type).
		Msg("extraction service ready")

	svc := usecase.NewExtractionService(pipeline, repo, usecase.ExtractionServiceConfig{
		Model:                client.ModelName(),
		CacheTTL:             cfg.Cache.TTL,
		Retries:              cfg.LLM.Retries,
		MaxDescriptionLength: cfg.Matching.MaxDescriptionLength,
	}, logger)
	return svc, closeCache, nil
}
