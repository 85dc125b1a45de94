package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/service"
)

const stateCookieName = "oauth_state"

// Authenticator is the part of service.AuthService the HTTP layer uses.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*service.AuthResult, error)
	LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*service.AuthResult, error)
	Me(ctx context.Context, p model.Principal) (*model.User, error)
}

// GitHubFlow is the OAuth half of the login. *auth.GitHubProvider
// implements it.
type GitHubFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages login, logout and the session cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → check username/password, issue the JWT cookie
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//   - HandleLogout         → clear the JWT cookie
//   - HandleMe             → return the currently logged-in user's profile
type AuthHandler struct {
	svc    Authenticator
	github GitHubFlow // nil when GitHub login is not configured
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. ttl should match the token
// lifetime so the cookie and the JWT expire together.
func NewAuthHandler(svc Authenticator, github GitHubFlow, ttl time.Duration, secureCookie bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		github: github,
		ttl:    ttl,
		secure: secureCookie,
		logger: logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin authenticates with username and password.
//
// HTTP: POST /auth/login
// REQUEST BODY: {"username": "slash", "password": "..."}
//
// The token is returned in the body for API clients and set as an HttpOnly
// cookie for the browser.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, res.Token)
	writeData(w, http.StatusOK, res)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived cookie and into the
// authorization URL. HandleGitHubCallback accepts the callback only when
// both match, which proves this server started the flow.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Find or create the local account
//  4. Issue a JWT access token stored in an HttpOnly cookie
//  5. Redirect to the app home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, apperror.Collaborator(err))
		return
	}

	// --- Steps 3 & 4: Local account and token ---
	res, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}
	h.setTokenCookie(w, res.Token)

	// --- Step 5: Redirect to the app ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so the JWT itself stays valid until it expires.
// Logging out only removes it from the browser.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.svc.Me(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}

func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
