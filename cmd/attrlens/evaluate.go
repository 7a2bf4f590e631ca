package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/attrlens/backend/internal/domain"
	"github.com/attrlens/backend/internal/infrastructure/dataset"
	"github.com/attrlens/backend/internal/usecase"
)

var (
	evalDataset     string
	evalSamples     int
	evalSeed        int64
	evalConcurrency int
	evalFields      []string
	evalOutput      string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Measure extraction accuracy against the product dataset",
	Long: `Run a sample of the product dataset through the extraction pipeline and
compare each field against the ground truth taken from the dataset columns.

Each field is scored as an exact match, a fuzzy match (similarity at or above
the matching threshold) or a miss. The cache is bypassed.

Examples:
  attrlens evaluate
  attrlens evaluate --samples 200 --concurrency 4
  attrlens evaluate --fields brand,color --output report.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fields, err := parseFields(evalFields)
		if err != nil {
			return err
		}

		path := firstNonEmpty(evalDataset, cfg.Evaluation.DatasetPath)
		rows, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}

		n := cfg.Evaluation.SampleSize
		if cmd.Flags().Changed("samples") {
			n = evalSamples
		}
		seed := cfg.Evaluation.Seed
		if cmd.Flags().Changed("seed") {
			seed = evalSeed
		}
		concurrency := cfg.Evaluation.Concurrency
		if cmd.Flags().Changed("concurrency") {
			concurrency = evalConcurrency
		}

		samples := make([]domain.Sample, 0, n)
		for _, row := range dataset.Sample(rows, n, seed) {
			if s, ok := dataset.ToSample(row, cfg.Matching.MaxDescriptionLength); ok {
				samples = append(samples, s)
			}
		}
		if len(samples) == 0 {
			return fmt.Errorf("no usable samples in %s", path)
		}
		logger.Info().Str("dataset", path).Int("rows", len(rows)).Int("samples", len(samples)).Msg("dataset loaded")

		svc, closeService, err := newExtractionService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeService()

		pipeline := svc.Pipeline()
		bar := newProgressBar(len(samples), cmd.ErrOrStderr())
		evaluator := usecase.NewEvaluator(pipeline, pipeline.Normalizer(), logger)
		report, err := evaluator.Evaluate(ctx, samples, usecase.EvaluationOptions{
			Concurrency: concurrency,
			Fields:      fields,
			Progress: func(done, total int) {
				_ = bar.Set(done)
			},
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}

		renderReport(cmd.OutOrStdout(), report, pipeline.Normalizer().MetricName())

		if evalOutput != "" {
			if err := writeReport(evalOutput, report); err != nil {
				return err
			}
			color.New(color.FgCyan).Fprintf(cmd.OutOrStdout(), "ℹ report written to %s\n", evalOutput)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&evalDataset, "dataset", "", "product CSV (overrides evaluation.dataset_path)")
	evaluateCmd.Flags().IntVar(&evalSamples, "samples", 50, "number of rows to sample (overrides evaluation.sample_size)")
	evaluateCmd.Flags().Int64Var(&evalSeed, "seed", 42, "sampling seed (overrides evaluation.seed)")
	evaluateCmd.Flags().IntVar(&evalConcurrency, "concurrency", 1, "parallel pipeline runs (overrides evaluation.concurrency)")
	evaluateCmd.Flags().StringSliceVar(&evalFields, "fields", nil, "fields to score (default: all)")
	evaluateCmd.Flags().StringVar(&evalOutput, "output", "", "write the full report as JSON to this file")

	rootCmd.AddCommand(evaluateCmd)
}

func parseFields(names []string) ([]domain.Field, error) {
	fields := make([]domain.Field, 0, len(names))
	for _, name := range names {
		f, ok := domain.ParseField(name)
		if !ok {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func newProgressBar(total int, out io.Writer) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("evaluating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("samples"),
		progressbar.OptionShowIts(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(out, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// accuracyColor grades an accuracy percentage
func accuracyColor(pct float64) *color.Color {
	switch {
	case pct >= 80:
		return color.New(color.FgGreen)
	case pct >= 50:
		return color.New(color.FgYellow)
	}
	return color.New(color.FgRed)
}

func renderReport(out io.Writer, report *domain.AccuracyReport, metric string) {
	bold := color.New(color.Bold)
	bold.Fprintf(out, "\nAccuracy over %d samples (metric %s, threshold %.2f)\n\n", report.SampleSize, metric, report.Threshold)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	headers := []string{"FIELD", "EXACT", "FUZZY", "MISS", "ACCURACY"}
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	separator := make([]string, len(headers))
	for i := range separator {
		separator[i] = strings.Repeat("-", len(headers[i]))
	}
	fmt.Fprintln(w, strings.Join(separator, "\t"))

	for _, fa := range report.Fields {
		fmt.Fprintf(w, "%s\t%.1f%%\t%.1f%%\t%.1f%%\t%s\n",
			fa.Field, fa.ExactPct, fa.FuzzyPct, fa.MissPct,
			accuracyColor(fa.Accuracy).Sprintf("%.1f%%", fa.Accuracy))
	}
	_ = w.Flush()

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Overall: %s\n", accuracyColor(report.Overall).Sprintf("%.1f%%", report.Overall))
	if report.Failed > 0 {
		color.New(color.FgYellow).Fprintf(out, "⚠ %d of %d samples failed and count as misses\n", report.Failed, report.SampleSize)
	}
}

func writeReport(path string, report *domain.AccuracyReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
