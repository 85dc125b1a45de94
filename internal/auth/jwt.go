// Package auth provides JWT tokens, password hashing, optional GitHub OAuth
// and the HTTP middleware that turns a token into a model.Principal.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User posts username + password to /auth/login (or completes GitHub OAuth)
//  2. Server verifies the bcrypt hash and issues a signed JWT
//  3. The JWT goes into an HttpOnly "token" cookie and the response body
//  4. On every API call the middleware reads the cookie (or an
//     "Authorization: Bearer" header), validates the JWT and stores the
//     Principal in the request context
//
// The token carries everything a handler needs to build the Principal
// (user ID, username, role), so no database lookup happens per request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/guitar-ai/internal/model"
)

const issuer = "guitar-ai"

// DefaultTokenTTL is used when NewTokenService gets a zero TTL.
const DefaultTokenTTL = 24 * time.Hour

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is how long issued tokens stay valid. Handlers use it for the cookie
// Max-Age.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// claims is the JWT payload. "sub" is the internal user ID.
type claims struct {
	Username string     `json:"username"`
	Role     model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Generate signs a token for user with the service's TTL.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return s.GenerateWithDuration(user, s.ttl)
}

// GenerateWithDuration signs a token with a custom lifetime. Tests use it to
// mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(user *model.User, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT string and returns the caller it
// identifies.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired
//   - Issuer matches "guitar-ai"
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
func (s *TokenService) Validate(tokenStr string) (model.Principal, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Principal{}, fmt.Errorf("auth: token expired")
		}
		return model.Principal{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return model.Principal{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return model.Principal{}, fmt.Errorf("auth: token has no subject")
	}

	role := c.Role
	if role != model.RoleAdmin {
		role = model.RoleUser
	}

	return model.Principal{UserID: c.Subject, Username: c.Username, Role: role}, nil
}
