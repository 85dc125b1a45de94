package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/guitar-ai/internal/model"
)

// CookieName is the HttpOnly cookie that carries the JWT.
const CookieName = "token"

// contextKey is an unexported type used for context keys in this package.
//
// WHY A CUSTOM TYPE FOR CONTEXT KEYS?
// context.WithValue uses any as the key type. A package-private type means
// only this package can create a key of type contextKey, so nobody else can
// read or shadow the Principal stored in the context.
type contextKey string

const principalKey contextKey = "principal"

// unauthorizedBody matches the handler package's error envelope.
const unauthorizedBody = `{"success":false,"error":"valid authentication required","code":"unauthorized"}`

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the JWT from the "token" cookie or an "Authorization: Bearer"
// header, validates it, and stores the resulting model.Principal in the
// request context. If the token is missing or invalid, it answers 401 and
// stops the request chain.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := tokens.Validate(tokenFromRequest(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// WithPrincipal returns a copy of ctx carrying p. Handler tests use it to
// skip token minting.
func WithPrincipal(ctx context.Context, p model.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the authenticated caller.
//
// Returns (Principal{}, false) if no valid token was presented. On routes
// behind RequireAuth it always succeeds.
func PrincipalFromContext(ctx context.Context) (model.Principal, bool) {
	p, ok := ctx.Value(principalKey).(model.Principal)
	return p, ok && p.UserID != ""
}

// tokenFromRequest prefers the cookie (browser clients) and falls back to
// the Authorization header (API clients, the CLI, curl).
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
