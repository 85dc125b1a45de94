package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
	sqliteRepo "github.com/sakif/guitar-ai/internal/repository/sqlite"
	"github.com/sakif/guitar-ai/internal/service"
)

var (
	userPassword string
	userAdmin    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long:  `There is no public sign-up; accounts are created here or through GitHub login.`,
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create a password account",
	Long:  `Create a password account. The password is read from stdin unless --password is given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runUserCreate,
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd)

	userCreateCmd.Flags().StringVar(&userPassword, "password", "", "password (reads from stdin if not provided)")
	userCreateCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant the admin role")
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	password := userPassword
	if password == "" {
		password, err = readPassword(cmd.InOrStdin(), cmd.OutOrStdout(), args[0])
		if err != nil {
			return err
		}
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	role := model.RoleUser
	if userAdmin {
		role = model.RoleAdmin
	}

	user, err := newAuthService(db, logger).CreateUser(context.Background(), args[0], password, role)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created %s %q (id %s)\n", user.Role, user.Username, user.ID)
	return nil
}

func readPassword(in io.Reader, out io.Writer, username string) (string, error) {
	fmt.Fprintf(out, "Password for %s: ", username)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// newAuthService builds the account service for the CLI. Tokens are never
// issued here, so the token service is left nil.
func newAuthService(db *sqliteRepo.DB, logger *slog.Logger) *service.AuthService {
	return service.NewAuthService(db.Users(), nil, auth.NewPasswordService(), logger)
}
