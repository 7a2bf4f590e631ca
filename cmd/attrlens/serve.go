package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	httpDelivery "github.com/attrlens/backend/internal/delivery/http"
)

const shutdownTimeout = 30 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the AttrLens HTTP server.

Endpoints:
  GET  /health          - health check
  POST /api/v1/parse    - parse {"description": "..."} into a record
  GET  /api/v1/schema   - the taxonomy in use

Examples:
  attrlens serve               # Listen on the configured port (default 8080)
  attrlens serve --port 3000   # Listen on a custom port`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, closeService, err := newExtractionService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeService()

		port := cfg.Server.Port
		if servePort != "" {
			port = servePort
		}

		router := httpDelivery.SetupRouter(cfg, httpDelivery.NewHandler(svc), logger)
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%s", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info().
				Str("addr", srv.Addr).
				Str("environment", cfg.Server.Environment).
				Msg("starting HTTP server")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			logger.Info().Msg("shutdown signal received")
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("HTTP server error: %w", err)
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
