// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects handlers, middleware, and
// routes, and decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config ─┐
//	llm.Client ────┼─→ New() creates: sqlite.DB → repositories
//	               │                  learning.Assembler
//	               │                  services → handlers → routes
//
// This is the "composition root" pattern: every dependency is wired here,
// in one place, rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/guitar-ai/internal/auth"
	"github.com/sakif/guitar-ai/internal/config"
	"github.com/sakif/guitar-ai/internal/handler"
	"github.com/sakif/guitar-ai/internal/learning"
	"github.com/sakif/guitar-ai/internal/llm"
	"github.com/sakif/guitar-ai/internal/middleware"
	sqliteRepo "github.com/sakif/guitar-ai/internal/repository/sqlite"
	"github.com/sakif/guitar-ai/internal/service"
)

// defaultLimiterKeys is used when generation.rate_limit.max_users is unset.
const defaultLimiterKeys = 10000

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained, so in-flight requests never see a closed pool.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService
}

// New opens the database and wires every layer.
//
// client is the generation collaborator; main builds it from config with
// llm.New, tests pass a fake.
func New(cfg *config.Config, client llm.Client, logger *slog.Logger) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("server: JWT_SECRET is required")
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	// === CREATE DATABASE ===
	// The data directory is created on first start (like `mkdir -p`).
	if path := cfg.Database.Path; path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sqliteRepo.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}

	if err := s.setupRoutes(client); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database. Start calls it on the way out.
func (s *Server) Close() error { return s.db.Close() }

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                      → liveness (DB ping)
// POST   /auth/login, /auth/logout     → session cookie
// GET    /auth/github/login, /callback → only when GitHub is configured
// *      /api/*                        → JWT required
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: assigns a unique ID to each request (for tracing)
// 2. RealIP: extracts the client IP from proxy headers
// 3. Logger: logs each request with timing info and the request ID
// 4. Recoverer: catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes(client llm.Client) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Repositories ===
	var (
		users       = s.db.Users()
		examples    = s.db.Examples()
		corrections = s.db.Corrections()
		adjustments = s.db.Adjustments()
		templates   = s.db.Templates()
		generations = s.db.Generations()
	)

	// === Services ===
	gen := s.config.Generation
	assembler := learning.NewAssembler(corrections, examples, adjustments, nil, s.logger)

	authService := service.NewAuthService(users, s.tokens, auth.NewPasswordService(), s.logger)
	generationService := service.NewGenerationService(client, assembler, templates, generations, examples,
		service.GenerationSettings{
			Model:       gen.Model,
			MaxTokens:   gen.MaxTokens,
			Temperature: gen.Temperature,
			Timeout:     gen.Timeout,
			Fallbacks:   gen.Fallbacks(),
		}, s.logger)
	exampleService := service.NewExampleService(examples, s.logger)
	correctionService := service.NewCorrectionService(corrections, generations, s.logger)
	adjustmentService := service.NewAdjustmentService(adjustments, s.logger)
	templateService := service.NewTemplateService(templates, s.logger)
	learningService := service.NewLearningService(assembler, corrections, examples, generations, s.db, s.logger)

	// === Handlers ===
	var github handler.GitHubFlow
	if gh := s.config.Auth.GitHub; gh.Enabled() {
		github = auth.NewGitHubProvider(gh.ClientID, gh.ClientSecret, gh.CallbackURL)
	}
	authHandler := handler.NewAuthHandler(authService, github, s.tokens.TTL(), s.config.Auth.SecureCookie, s.logger)
	generationHandler := handler.NewGenerationHandler(generationService, s.logger)
	exampleHandler := handler.NewExampleHandler(exampleService, s.logger)
	correctionHandler := handler.NewCorrectionHandler(correctionService, s.logger)
	adjustmentHandler := handler.NewAdjustmentHandler(adjustmentService, s.logger)
	templateHandler := handler.NewTemplateHandler(templateService, s.logger)
	learningHandler := handler.NewLearningHandler(learningService, s.logger)

	limit, err := s.generationLimit()
	if err != nil {
		return err
	}

	// === Public routes ===
	s.router.Get("/healthz", handler.HandleHealth(s.db, s.logger))

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === API routes ===
	// RequireAuth runs first, so every handler below has a Principal and
	// the rate limiter can key on the user instead of the IP.
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/me", authHandler.HandleMe)

		r.With(limit).Post("/generate", generationHandler.HandleGenerate)
		r.Get("/generations", generationHandler.HandleList)
		r.Post("/generations/{id}/save", generationHandler.HandleSave)

		r.Route("/examples", func(r chi.Router) {
			r.Get("/", exampleHandler.HandleList)
			r.Post("/", exampleHandler.HandleCreate)
			r.Get("/public", exampleHandler.HandleListPublic)
			r.Get("/{id}", exampleHandler.HandleGet)
			r.Put("/{id}", exampleHandler.HandleUpdate)
			r.Delete("/{id}", exampleHandler.HandleDelete)
		})

		r.Route("/corrections", func(r chi.Router) {
			r.Get("/", correctionHandler.HandleList)
			r.Post("/", correctionHandler.HandleCreate)
			r.Post("/{id}/apply", correctionHandler.HandleApply)
		})

		r.Route("/adjustments", func(r chi.Router) {
			r.Get("/", adjustmentHandler.HandleList)
			r.Post("/", adjustmentHandler.HandleCreate)
			r.Put("/{id}", adjustmentHandler.HandleUpdate)
			r.Delete("/{id}", adjustmentHandler.HandleDelete)
		})

		r.Route("/templates", func(r chi.Router) {
			r.Get("/", templateHandler.HandleList)
			r.Post("/", templateHandler.HandleCreate)
			r.Get("/active/{type}", templateHandler.HandleGetActive)
			r.Get("/{id}", templateHandler.HandleGet)
			r.Put("/{id}", templateHandler.HandleUpdate)
			r.Delete("/{id}", templateHandler.HandleDelete)
			r.Post("/{id}/activate", templateHandler.HandleActivate)
		})

		r.Route("/learning", func(r chi.Router) {
			r.Get("/context", learningHandler.HandleContext)
			r.Get("/dashboard", learningHandler.HandleDashboard)
			r.Get("/stats", learningHandler.HandleStats)
		})
	})

	return nil
}

// generationLimit returns the per-user limiter for POST /api/generate, or a
// pass-through when rate_limit.per_minute is 0.
func (s *Server) generationLimit() (func(http.Handler) http.Handler, error) {
	rl := s.config.Generation.RateLimit
	if rl.PerMinute <= 0 {
		s.logger.Warn("generation rate limiting is disabled")
		return func(next http.Handler) http.Handler { return next }, nil
	}

	maxKeys := rl.MaxUsers
	if maxKeys <= 0 {
		maxKeys = defaultLimiterKeys
	}
	burst := max(rl.Burst, 1)

	limiter, err := middleware.NewRateLimiter(middleware.RateLimitConfig{
		PerMinute: rl.PerMinute,
		Burst:     burst,
		MaxKeys:   maxKeys,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("creating rate limiter: %w", err)
	}
	return limiter.Middleware, nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (server.shutdown_timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	// WriteTimeout must outlive the generation timeout, or slow completions
	// are cut off mid-response.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      s.config.Generation.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Server.Port)),
			slog.String("database", s.config.Database.Path),
			slog.String("provider", s.config.Generation.Provider),
			slog.Bool("githubLogin", s.config.Auth.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
