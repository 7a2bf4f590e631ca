package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attrlens/backend/internal/domain"
)

// runnerFunc adapts a function to Runner
type runnerFunc func(ctx context.Context, description string) (*domain.Record, error)

func (f runnerFunc) Run(ctx context.Context, description string) (*domain.Record, error) {
	return f(ctx, description)
}

func brandRecord(brand string) *domain.Record {
	return &domain.Record{Brand: domain.StringPtr(brand), Features: []string{}}
}

func TestCompareField(t *testing.T) {
	for _, metric := range testMetrics {
		for _, threshold := range []float64{0.7, 0.8} {
			t.Run(fmt.Sprintf("%s/%.2f", metric, threshold), func(t *testing.T) {
				e := NewEvaluator(nil, mustNormalizer(t, MatchConfig{Threshold: threshold, Metric: metric}), zerolog.Nop())

				tests := []struct {
					name      string
					predicted *domain.Record
					expected  *domain.Record
					want      domain.Outcome
				}{
					{"case-insensitive equality", brandRecord("SONY"), brandRecord("sony"), domain.OutcomeExact},
					{"hyphenated brand is fuzzy", brandRecord("Power-Max"), brandRecord("powermax"), domain.OutcomeFuzzy},
					{"different brand is miss", brandRecord("Sony"), brandRecord("HatMaster"), domain.OutcomeMiss},
					{"both null is exact", &domain.Record{}, &domain.Record{}, domain.OutcomeExact},
					{"predicted null is miss", &domain.Record{}, brandRecord("Sony"), domain.OutcomeMiss},
					{"expected null is miss", brandRecord("Sony"), &domain.Record{}, domain.OutcomeMiss},
				}
				for _, tt := range tests {
					assert.Equal(t, tt.want, e.CompareField(domain.FieldBrand, tt.predicted, tt.expected), tt.name)
				}
			})
		}
	}
}

func TestCompareFeatures(t *testing.T) {
	e := NewEvaluator(nil, mustNormalizer(t, MatchConfig{}), zerolog.Nop())
	features := func(values ...string) *domain.Record {
		return &domain.Record{Features: values}
	}

	assert.Equal(t, domain.OutcomeExact, e.CompareField(domain.FieldFeatures, features(), features()))
	assert.Equal(t, domain.OutcomeExact, e.CompareField(domain.FieldFeatures, features("B", "a"), features("A", "b", "a")))
	assert.Equal(t, domain.OutcomeFuzzy, e.CompareField(domain.FieldFeatures, features("water-proof"), features("waterproof")))
	assert.Equal(t, domain.OutcomeMiss, e.CompareField(domain.FieldFeatures, features("waterproof"), features("waterproof", "lightweight")))
	assert.Equal(t, domain.OutcomeMiss, e.CompareField(domain.FieldFeatures, features(), features("waterproof")))
}

func TestEvaluate(t *testing.T) {
	samples := []domain.Sample{
		{Description: "sony headphones", Expected: &domain.Record{Brand: domain.StringPtr("Sony"), Color: domain.StringPtr("black")}},
		{Description: "powermax cord", Expected: &domain.Record{Brand: domain.StringPtr("powermax")}},
		{Description: "broken", Expected: &domain.Record{}},
	}
	runner := runnerFunc(func(ctx context.Context, description string) (*domain.Record, error) {
		switch description {
		case "sony headphones":
			return &domain.Record{Brand: domain.StringPtr("Sony"), Color: domain.StringPtr("black"), Features: []string{}}, nil
		case "powermax cord":
			return &domain.Record{Brand: domain.StringPtr("Power-Max"), Features: []string{}}, nil
		}
		return nil, &domain.CompletionError{Model: "test", Err: errors.New("down")}
	})
	fields := []domain.Field{domain.FieldBrand, domain.FieldColor}

	report, err := NewEvaluator(runner, mustNormalizer(t, MatchConfig{}), zerolog.Nop()).
		Evaluate(context.Background(), samples, EvaluationOptions{Fields: fields})

	require.NoError(t, err)
	assert.Equal(t, 3, report.SampleSize)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, DefaultThreshold, report.Threshold)

	brand, ok := report.Field(domain.FieldBrand)
	require.True(t, ok)
	assert.Equal(t, 1, brand.Exact)
	assert.Equal(t, 1, brand.Fuzzy)
	assert.Equal(t, 1, brand.Miss)
	assert.InDelta(t, 66.67, brand.Accuracy, 0.01)

	// Sample two has null on both sides for color; the failed sample is a miss
	color, ok := report.Field(domain.FieldColor)
	require.True(t, ok)
	assert.Equal(t, 2, color.Exact)
	assert.Equal(t, 1, color.Miss)

	assert.InDelta(t, 66.67, report.Overall, 0.01)
	assert.Equal(t, domain.OutcomeMiss, report.Samples[2].Outcomes[domain.FieldColor])
	assert.NotEmpty(t, report.Samples[2].Error)
	assert.Nil(t, report.Samples[2].Predicted)

	_, ok = report.Field(domain.FieldMaterial)
	assert.False(t, ok)
}

func TestEvaluateConcurrencyIsDeterministic(t *testing.T) {
	samples := make([]domain.Sample, 20)
	for i := range samples {
		samples[i] = domain.Sample{
			Description: fmt.Sprintf("item %d", i),
			Expected:    brandRecord(fmt.Sprintf("brand %d", i%3)),
		}
	}
	runner := runnerFunc(func(ctx context.Context, description string) (*domain.Record, error) {
		var i int
		fmt.Sscanf(strings.TrimPrefix(description, "item "), "%d", &i)
		return brandRecord(fmt.Sprintf("brand %d", i%2)), nil
	})
	e := NewEvaluator(runner, mustNormalizer(t, MatchConfig{Threshold: 0.99}), zerolog.Nop())

	serial, err := e.Evaluate(context.Background(), samples, EvaluationOptions{Concurrency: 1})
	require.NoError(t, err)

	var (
		mu       sync.Mutex
		progress []int
	)
	parallel, err := e.Evaluate(context.Background(), samples, EvaluationOptions{
		Concurrency: 8,
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, len(samples), total)
			progress = append(progress, done)
		},
	})
	require.NoError(t, err)

	assert.Equal(t, serial.Fields, parallel.Fields)
	assert.Equal(t, serial.Overall, parallel.Overall)
	for i := range samples {
		assert.Equal(t, i, parallel.Samples[i].Index)
	}
	assert.Len(t, progress, len(samples))
	assert.Equal(t, len(samples), progress[len(progress)-1])
}

func TestEvaluateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := runnerFunc(func(ctx context.Context, description string) (*domain.Record, error) {
		return &domain.Record{}, nil
	})

	_, err := NewEvaluator(runner, mustNormalizer(t, MatchConfig{}), zerolog.Nop()).
		Evaluate(ctx, []domain.Sample{{Description: "x"}}, EvaluationOptions{})

	assert.ErrorIs(t, err, context.Canceled)
}
