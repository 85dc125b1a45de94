package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/guitar-ai/internal/llm"
	"github.com/sakif/guitar-ai/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP API. The server stops gracefully on SIGINT or SIGTERM,
waiting up to server.shutdown_timeout for in-flight requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	// The provider API key is only needed here; migrate and seed run without it.
	client, err := llm.New(context.Background(), cfg.Generation.LLM())
	if err != nil {
		return fmt.Errorf("creating %s client: %w", cfg.Generation.Provider, err)
	}
	logger.Info("generation provider ready",
		slog.String("provider", client.Name()),
		slog.String("model", cfg.Generation.Model),
	)

	srv, err := server.New(cfg, client, logger)
	if err != nil {
		return err
	}

	// Start blocks until the server is shut down.
	return srv.Start()
}
