package usecase

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/attrlens/backend/internal/domain"
)

// Runner produces a normalized record for one description
type Runner interface {
	Run(ctx context.Context, description string) (*domain.Record, error)
}

// EvaluationOptions tunes an evaluation run
type EvaluationOptions struct {
	// Concurrency bounds parallel pipeline runs; values below 1 mean 1.
	Concurrency int
	// Fields restricts scoring; empty scores every field.
	Fields []domain.Field
	// Progress is called after each sample with the completed count.
	Progress func(done, total int)
}

// Evaluator measures end-to-end accuracy against ground truth
type Evaluator struct {
	runner     Runner
	normalizer *Normalizer
	logger     zerolog.Logger
}

// NewEvaluator creates an evaluator. Fuzzy outcomes use the normalizer's
// metric and threshold.
func NewEvaluator(runner Runner, normalizer *Normalizer, logger zerolog.Logger) *Evaluator {
	return &Evaluator{
		runner:     runner,
		normalizer: normalizer,
		logger:     logger.With().Str("component", "evaluation").Logger(),
	}
}

// Evaluate runs every sample through the pipeline and aggregates per-field
// outcomes. A failing sample counts as a miss on every field; only context
// cancellation aborts the run.
func (e *Evaluator) Evaluate(ctx context.Context, samples []domain.Sample, opts EvaluationOptions) (*domain.AccuracyReport, error) {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = domain.Fields
	}
	limit := max(opts.Concurrency, 1)

	results := make([]domain.SampleResult, len(samples))
	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, sample := range samples {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.runSample(gctx, i, sample, fields)

			if opts.Progress != nil {
				mu.Lock()
				done++
				opts.Progress(done, len(samples))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := aggregate(results, fields, e.normalizer.Threshold())
	e.logger.Info().
		Int("samples", report.SampleSize).
		Int("failed", report.Failed).
		Float64("overall", report.Overall).
		Msg("evaluation finished")
	return report, nil
}

func (e *Evaluator) runSample(ctx context.Context, index int, sample domain.Sample, fields []domain.Field) domain.SampleResult {
	result := domain.SampleResult{
		Index:    index,
		Outcomes: make(map[domain.Field]domain.Outcome, len(fields)),
	}

	predicted, err := e.runner.Run(ctx, sample.Description)
	if err != nil {
		e.logger.Warn().Err(err).Int("sample", index).Msg("sample failed")
		result.Error = err.Error()
		for _, f := range fields {
			result.Outcomes[f] = domain.OutcomeMiss
		}
		return result
	}

	expected := sample.Expected
	if expected == nil {
		expected = &domain.Record{}
	}

	result.Predicted = predicted
	for _, f := range fields {
		result.Outcomes[f] = e.CompareField(f, predicted, expected)
	}
	return result
}

// CompareField classifies one field. Both-null is an exact match; one-null
// is a miss. Strings compare case-insensitively, features as sets.
func (e *Evaluator) CompareField(f domain.Field, predicted, expected *domain.Record) domain.Outcome {
	if f == domain.FieldFeatures {
		return e.compareFeatures(predicted.Features, expected.Features)
	}

	p, x := foldPtr(predicted.Get(f)), foldPtr(expected.Get(f))
	switch {
	case p == "" && x == "":
		return domain.OutcomeExact
	case p == "" || x == "":
		return domain.OutcomeMiss
	case p == x:
		return domain.OutcomeExact
	case e.normalizer.Similarity(p, x) >= e.normalizer.Threshold():
		return domain.OutcomeFuzzy
	}
	return domain.OutcomeMiss
}

func (e *Evaluator) compareFeatures(predicted, expected []string) domain.Outcome {
	p, x := foldSet(predicted), foldSet(expected)
	switch {
	case len(p) == 0 && len(x) == 0:
		return domain.OutcomeExact
	case len(p) == 0 || len(x) == 0:
		return domain.OutcomeMiss
	case sameSet(p, x):
		return domain.OutcomeExact
	case e.covers(p, x) && e.covers(x, p):
		return domain.OutcomeFuzzy
	}
	return domain.OutcomeMiss
}

// covers reports whether every value in want has a similar value in have.
func (e *Evaluator) covers(have, want []string) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w || e.normalizer.Similarity(h, w) >= e.normalizer.Threshold() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func aggregate(results []domain.SampleResult, fields []domain.Field, threshold float64) *domain.AccuracyReport {
	report := &domain.AccuracyReport{
		SampleSize: len(results),
		Threshold:  threshold,
		Fields:     make([]domain.FieldAccuracy, 0, len(fields)),
		Samples:    results,
	}
	for _, r := range results {
		if r.Error != "" {
			report.Failed++
		}
	}

	var sum float64
	for _, f := range fields {
		fa := domain.FieldAccuracy{Field: f}
		for _, r := range results {
			switch r.Outcomes[f] {
			case domain.OutcomeExact:
				fa.Exact++
			case domain.OutcomeFuzzy:
				fa.Fuzzy++
			default:
				fa.Miss++
			}
		}
		if n := float64(len(results)); n > 0 {
			fa.ExactPct = float64(fa.Exact) / n * 100
			fa.FuzzyPct = float64(fa.Fuzzy) / n * 100
			fa.MissPct = float64(fa.Miss) / n * 100
			fa.Accuracy = fa.ExactPct + fa.FuzzyPct
		}
		sum += fa.Accuracy
		report.Fields = append(report.Fields, fa)
	}
	if len(fields) > 0 {
		report.Overall = sum / float64(len(fields))
	}
	return report
}

func foldPtr(v *string) string {
	if v == nil {
		return ""
	}
	return domain.FoldValue(*v)
}

func foldSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		k := domain.FoldValue(v)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	in := make(map[string]bool, len(a))
	for _, v := range a {
		in[v] = true
	}
	for _, v := range b {
		if !in[v] {
			return false
		}
	}
	return true
}
