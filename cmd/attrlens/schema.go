package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/attrlens/backend/internal/infrastructure/dataset"
	"github.com/attrlens/backend/internal/infrastructure/schemafile"
)

var (
	schemaDataset  string
	schemaOutput   string
	schemaMinCount int
	schemaTopN     int
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Build or inspect the taxonomy",
}

var schemaBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Generate the taxonomy from the product CSV",
	Long: `Scan the product dataset and write a taxonomy document.

Categories are the roots of the category lists that appear often enough,
subcategories their leaves. Brands are the most frequent values of the brand
column. Colors and materials are known words found in variations, features
and product details.

Examples:
  attrlens schema build --dataset archive/amazon-products.csv --out schema.json
  attrlens schema build --out schema.yaml --min-count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := firstNonEmpty(schemaDataset, cfg.Evaluation.DatasetPath)
		rows, err := dataset.ReadFile(path)
		if err != nil {
			return err
		}

		def := dataset.BuildSchema(rows, dataset.BuildOptions{
			MinCategoryCount: schemaMinCount,
			TopN:             schemaTopN,
		})

		out := firstNonEmpty(schemaOutput, cfg.Schema.Path)
		if err := schemafile.Write(out, &def); err != nil {
			return err
		}

		logger.Info().Str("dataset", path).Int("rows", len(rows)).Msg("schema built")
		color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ wrote %s (%d categories)\n",
			out, len(def.Properties["category"].Values))
		return nil
	},
}

var schemaShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the loaded taxonomy",
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, err := schemafile.Load(cfg.Schema.Path)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(schema.Definition(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode schema: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	defaults := dataset.DefaultBuildOptions()
	schemaBuildCmd.Flags().StringVar(&schemaDataset, "dataset", "", "product CSV (overrides evaluation.dataset_path)")
	schemaBuildCmd.Flags().StringVar(&schemaOutput, "out", "", "output file, .json or .yaml (default: schema.path)")
	schemaBuildCmd.Flags().IntVar(&schemaMinCount, "min-count", defaults.MinCategoryCount, "minimum rows for a category to be kept")
	schemaBuildCmd.Flags().IntVar(&schemaTopN, "top", defaults.TopN, "maximum number of values kept per open field")

	schemaCmd.AddCommand(schemaBuildCmd, schemaShowCmd)
	rootCmd.AddCommand(schemaCmd)
}
