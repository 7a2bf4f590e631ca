package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"

	"github.com/attrlens/backend/internal/domain"
)

// ExtractionServiceConfig holds configuration for the extraction service
type ExtractionServiceConfig struct {
	Model                string
	CacheTTL             time.Duration
	Retries              int
	RetryDelay           time.Duration
	MaxDescriptionLength int
}

// ExtractionResult is a normalized record plus request metadata
type ExtractionResult struct {
	Record     *domain.Record `json:"record"`
	Model      string         `json:"model"`
	Cached     bool           `json:"cached"`
	DurationMS int64          `json:"duration_ms"`
}

// ExtractionService handles description parsing with caching and a
// caller-side retry policy around the pipeline.
type ExtractionService struct {
	pipeline     *Pipeline
	cache        domain.CacheRepository
	preprocessor *DescriptionPreprocessor
	model        string
	cacheTTL     time.Duration
	retries      int
	retryDelay   time.Duration
	logger       zerolog.Logger
}

// NewExtractionService creates a new extraction service. cache may be nil.
func NewExtractionService(
	pipeline *Pipeline,
	cache domain.CacheRepository,
	config ExtractionServiceConfig,
	logger zerolog.Logger,
) *ExtractionService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}

	retryDelay := config.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	return &ExtractionService{
		pipeline:     pipeline,
		cache:        cache,
		preprocessor: NewDescriptionPreprocessor(config.MaxDescriptionLength),
		model:        config.Model,
		cacheTTL:     cacheTTL,
		retries:      max(config.Retries, 0),
		retryDelay:   retryDelay,
		logger:       logger.With().Str("component", "extraction").Logger(),
	}
}

// Pipeline exposes the un-cached pipeline, used by the evaluation harness.
func (s *ExtractionService) Pipeline() *Pipeline { return s.pipeline }

// Schema returns the taxonomy in use.
func (s *ExtractionService) Schema() *domain.Schema { return s.pipeline.Schema() }

// Extract parses one product description.
// Flow: preprocess -> check cache -> run pipeline -> cache -> return
func (s *ExtractionService) Extract(ctx context.Context, description string) (*ExtractionResult, error) {
	start := time.Now()

	prepared, err := s.preprocessor.Prepare(description)
	if err != nil {
		return nil, err
	}

	cacheKey := s.generateCacheKey(prepared)
	if record, ok := s.getFromCache(ctx, cacheKey); ok {
		s.logger.Debug().Str("key", cacheKey).Msg("cache hit")
		return &ExtractionResult{
			Record:     record,
			Model:      s.model,
			Cached:     true,
			DurationMS: time.Since(start).Milliseconds(),
		}, nil
	}

	var record *domain.Record
	err = retry.Do(
		func() error {
			var runErr error
			record, runErr = s.pipeline.Run(ctx, prepared)
			return runErr
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.retries+1)),
		retry.Delay(s.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, domain.ErrCompletionFailed)
		}),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn().Err(err).Uint("attempt", n+1).Msg("retrying completion")
		}),
	)
	if err != nil {
		return nil, err
	}

	if err := s.setInCache(ctx, cacheKey, record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to cache record")
	}

	elapsed := time.Since(start)
	s.logger.Debug().Dur("elapsed", elapsed).Msg("description parsed")

	return &ExtractionResult{
		Record:     record,
		Model:      s.model,
		DurationMS: elapsed.Milliseconds(),
	}, nil
}

// generateCacheKey hashes everything that changes the output for a description.
// Format: "extract:{sha256}"
func (s *ExtractionService) generateCacheKey(prepared string) string {
	n := s.pipeline.Normalizer()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.4f|%s", s.model, n.MetricName(), n.Threshold(), prepared)))
	return "extract:" + hex.EncodeToString(sum[:])
}

func (s *ExtractionService) getFromCache(ctx context.Context, key string) (*domain.Record, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Msg("cache lookup failed")
		}
		return nil, false
	}

	var record domain.Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn().Err(err).Msg("discarding undecodable cache entry")
		return nil, false
	}
	if record.Features == nil {
		record.Features = []string{}
	}
	return &record, true
}

func (s *ExtractionService) setInCache(ctx context.Context, key string, record *domain.Record) error {
	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
