package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{2,49}$`)

// errBadCredentials is deliberately the same for "no such user" and "wrong
// password", so the login endpoint doesn't reveal which usernames exist.
var errBadCredentials = apperror.Unauthorized("invalid username or password")

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Login verifies a username/password pair and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	if username == "" || password == "" {
		return nil, errBadCredentials
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	// GitHub-only accounts have no password to check against.
	if user.PasswordHash == "" {
		return nil, errBadCredentials
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info("login rejected", slog.String("username", username))
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}

	return s.issue(user)
}

// LoginOrRegisterGitHub upserts the account linked to the GitHub profile and
// issues a token. A first login takes the GitHub login as username; when that
// name is already taken by a password account, the GitHub ID is appended.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	id := gh.ID
	user := &model.User{Username: gh.Login, Email: gh.Email, GitHubID: &id, Role: model.RoleUser}
	err := s.users.UpsertGitHub(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user = &model.User{
			Username: gh.Login + "-gh" + strconv.FormatInt(gh.ID, 10),
			Email:    gh.Email,
			GitHubID: &id,
			Role:     model.RoleUser,
		}
		err = s.users.UpsertGitHub(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", gh.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
	)
	return s.issue(user)
}

// Me returns the caller's own account.
func (s *AuthService) Me(ctx context.Context, p model.Principal) (*model.User, error) {
	user, err := s.users.GetByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", p.UserID, err)
	}
	return user, nil
}

// CreateUser registers a password account. Used by the CLI ("user create"
// and "seed"); there is no public sign-up endpoint.
func (s *AuthService) CreateUser(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username",
			"username must be 3-50 characters of letters, digits, '.', '_' or '-'")
	}
	if err := auth.CheckStrength(password); err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}
	if role != model.RoleAdmin {
		role = model.RoleUser
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{Username: username, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", username, err)
	}

	s.logger.Info("user created",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
