// Package model defines the domain types shared by every layer: users,
// examples, corrections, adjustments, prompt templates and generation records.
// Structs carry json tags for the API; validation helpers (ParseCategory,
// NormalizeTags, ParseAdjustmentValue) run at the service boundary.
package model

import "time"

// Role distinguishes administrators (who may manage system-wide
// adjustments) from regular users.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents a registered user account.
//
// Users log in with a username and password (bcrypt hash stored in
// PasswordHash). When GitHub OAuth is configured, a user may also be linked
// to a GitHub account; GitHubID is nil for password-only accounts.
//
// WHY *int64 FOR GitHubID?
// The column is UNIQUE but optional. SQLite allows many NULLs in a UNIQUE
// column, so nil maps cleanly to "not linked" without colliding.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	GitHubID     *int64    `json:"githubId,omitempty"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Principal is the authenticated caller. Handlers build it from the verified
// token and pass it explicitly into every service operation, so no service
// reads identity from ambient request state.
type Principal struct {
	UserID   string
	Username string
	Role     Role
}

// IsAdmin reports whether the principal may manage system-wide settings.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
