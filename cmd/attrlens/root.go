package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/attrlens/backend/config"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "attrlens",
	Short: "Extract structured attributes from free-text product descriptions",
	Long: `AttrLens turns unstructured product descriptions into a fixed nine-field
record using a locally hosted language model.

The category is chosen from a closed taxonomy. Subcategory, brand, color
and material are extracted freely and then snapped to known values by
fuzzy matching. Size, dimensions, weight and features are kept as found.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFile(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}

		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		logger, err = newLogger(cfg.Log, cmd.ErrOrStderr())
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml, ./config/config.yaml or /etc/attrlens/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: trace, debug, info, warn or error (overrides config)",
	)
}
