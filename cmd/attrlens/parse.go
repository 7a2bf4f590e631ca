package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/attrlens/backend/internal/domain"
	"github.com/attrlens/backend/internal/usecase"
)

// recordExtractor is the part of the extraction service the parse command uses
type recordExtractor interface {
	Extract(ctx context.Context, description string) (*usecase.ExtractionResult, error)
}

var parseCmd = &cobra.Command{
	Use:   "parse [description]",
	Short: "Parse a product description into a record",
	Long: `Parse a product description and print the normalized record as JSON.

With an argument, the argument is parsed once. Without one, descriptions are
read from stdin one line at a time until EOF or "quit".

Examples:
  attrlens parse "PowerMax 50ft Outdoor Extension Cord, orange, weatherproof"
  cat descriptions.txt | attrlens parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, closeService, err := newExtractionService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeService()

		if len(args) == 1 {
			return parseOne(ctx, svc, args[0], cmd.OutOrStdout())
		}
		return parseLoop(ctx, svc, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func parseOne(ctx context.Context, svc recordExtractor, description string, out io.Writer) error {
	result, err := svc.Extract(ctx, description)
	if err != nil {
		return err
	}
	return writeRecord(out, result.Record)
}

// parseLoop parses stdin line by line. Failures are reported and skipped.
func parseLoop(ctx context.Context, svc recordExtractor, in io.Reader, out, errOut io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		if err := parseOne(ctx, svc, line, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			color.New(color.FgRed).Fprintf(errOut, "✗ %v\n", err)
		}
	}
	return scanner.Err()
}

func writeRecord(out io.Writer, record *domain.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
