// Command guitarai runs the description service and its admin tasks.
//
// MAIN PACKAGE IN GO:
// The main package stays small. It reads configuration, builds the logger
// and hands off to internal/server (or to a one-shot admin task). All
// actual logic lives in the internal packages.
//
// SUBCOMMANDS:
//
//	guitarai serve                      start the HTTP server
//	guitarai migrate                    create or update the database schema
//	guitarai seed                       admin user + default public examples
//	guitarai user create <username>     add a password account
//
// Every subcommand accepts --config path/to/config.yaml; environment
// variables override the file (see internal/config).
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"

	"github.com/sakif/guitar-ai/internal/config"
	sqliteRepo "github.com/sakif/guitar-ai/internal/repository/sqlite"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "guitarai",
	Short:         "AI descriptions for guitars and companies",
	Long:          `guitarai generates product and company descriptions and learns from user examples and corrections.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config and the environment, and builds the logger the
// config asks for. Logs go to stderr so command output stays clean.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// openDB opens the configured database for the admin subcommands. Opening
// runs migrations.
func openDB(cfg *config.Config) (*sqliteRepo.DB, error) {
	if err := ensureDir(cfg.Database.Path); err != nil {
		return nil, err
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}
	return db, nil
}
