package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB stores user accounts.
type UserDB struct {
	db *DB
}

const userColumns = `id, username, password_hash, github_id, email, role, created_at, updated_at`

func scanUser(s scanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &githubID, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if githubID.Valid {
		u.GitHubID = &githubID.Int64
	}
	return &u, nil
}

// Create inserts a new user. A taken username (or GitHub ID) is reported as
// apperror.ErrConflict.
func (u *UserDB) Create(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Role == "" {
		user.Role = model.RoleUser
	}

	_, err := u.db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, user.GitHubID, user.Email, user.Role,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: creating user %q: %w", user.Username, err)
	}
	return nil
}

// GetByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (u *UserDB) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return user, nil
}

// GetByUsername is used by password login.
func (u *UserDB) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %q: %w", username, err)
	}
	return user, nil
}

// UpsertGitHub inserts or updates the account linked to user.GitHubID.
//
// An existing account keeps its internal ID, username and role; only the
// email is refreshed. The caller's struct is filled with the stored row.
func (u *UserDB) UpsertGitHub(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return apperror.ValidationFailed("githubId", "GitHub ID is required")
	}

	existing, err := scanUser(u.db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, *user.GitHubID,
	))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return u.Create(ctx, user)
	case err != nil:
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	existing.Email = user.Email
	existing.UpdatedAt = time.Now().UTC()
	_, err = u.db.conn.ExecContext(ctx,
		`UPDATE users SET email = ?, updated_at = ? WHERE id = ?`,
		existing.Email, existing.UpdatedAt, existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
	}

	*user = *existing
	return nil
}
