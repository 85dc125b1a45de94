package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/config"
	"github.com/sakif/guitar-ai/internal/model"
	sqliteRepo "github.com/sakif/guitar-ai/internal/repository/sqlite"
	"github.com/sakif/guitar-ai/internal/service"
)

var (
	seedAdminUser     string
	seedAdminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin user and the default public examples",
	Long: `Create an admin account and publish the fallback examples (built-in, or
generation.fallback_examples from the config file) as public examples owned by
that admin. Types that already have public examples are skipped, so seed can
run on every deploy.

The admin password comes from --admin-password or ADMIN_PASSWORD.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().StringVar(&seedAdminUser, "admin-user", "admin", "admin username")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "admin password (default $ADMIN_PASSWORD)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	password := seedAdminPassword
	if password == "" {
		password = os.Getenv("ADMIN_PASSWORD")
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := seed(context.Background(), db, cfg, seedAdminUser, password, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d public examples\n", n)
	return nil
}

// seed returns how many examples it created.
func seed(ctx context.Context, db *sqliteRepo.DB, cfg *config.Config, username, password string, logger *slog.Logger) (int, error) {
	admin, err := ensureAdmin(ctx, db, username, password, logger)
	if err != nil {
		return 0, err
	}
	p := model.Principal{UserID: admin.ID, Username: admin.Username, Role: admin.Role}

	examples := service.NewExampleService(db.Examples(), logger)
	table := cfg.Generation.Fallbacks()

	// Map order is random; seed types in a stable order.
	cats := make([]model.Category, 0, len(table))
	for cat := range table {
		cats = append(cats, cat)
	}
	slices.Sort(cats)

	created := 0
	for _, cat := range cats {
		existing, err := examples.ListPublic(ctx, string(cat), 1)
		if err != nil {
			return created, err
		}
		if len(existing) > 0 {
			logger.Info("public examples already present, skipping", slog.String("type", string(cat)))
			continue
		}

		for _, fb := range table[cat] {
			_, err := examples.Create(ctx, p, service.ExampleInput{
				Title:       fb.Title,
				Content:     fb.Content,
				Category:    string(cat),
				Subcategory: fb.Subcategory,
				Tags:        fb.Tags,
				Visibility:  string(model.VisibilityPublic),
			})
			if err != nil {
				return created, fmt.Errorf("seeding %s example %q: %w", cat, fb.Title, err)
			}
			created++
		}
	}
	return created, nil
}

// ensureAdmin reuses an existing admin account, or creates one.
func ensureAdmin(ctx context.Context, db *sqliteRepo.DB, username, password string, logger *slog.Logger) (*model.User, error) {
	admin, err := db.Users().GetByUsername(ctx, username)
	switch {
	case err == nil:
		if admin.Role != model.RoleAdmin {
			return nil, fmt.Errorf("user %q exists but is not an admin", username)
		}
		return admin, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, err
	}

	if password == "" {
		return nil, errors.New("admin password is required (--admin-password or ADMIN_PASSWORD)")
	}
	return newAuthService(db, logger).CreateUser(ctx, username, password, model.RoleAdmin)
}
