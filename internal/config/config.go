// Package config loads the service configuration.
//
// Sources, later ones win:
//  1. Built-in defaults (Default)
//  2. An optional YAML file (--config)
//  3. Environment variables (PORT, DB_PATH, JWT_SECRET, ...)
//
// Secrets are normally supplied through the environment; the YAML file may
// carry them too for local development.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sakif/guitar-ai/internal/learning"
	"github.com/sakif/guitar-ai/internal/llm"
	"github.com/sakif/guitar-ai/internal/model"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
	// SecureCookie sets the Secure flag on the token cookie (HTTPS only).
	SecureCookie bool         `yaml:"secure_cookie"`
	GitHub       GitHubConfig `yaml:"github"`
}

// GitHubConfig enables the optional GitHub login when ClientID is set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	CallbackURL  string `yaml:"callback_url"`
}

func (g GitHubConfig) Enabled() bool { return g.ClientID != "" && g.ClientSecret != "" }

type GenerationConfig struct {
	Provider string `yaml:"provider"`
	// Model is empty for the provider's default.
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	RateLimit   RateLimit     `yaml:"rate_limit"`
	// FallbackExamples replaces the built-in table when non-empty.
	FallbackExamples learning.FallbackTable `yaml:"fallback_examples"`
}

// LLM returns the provider settings in the shape llm.New expects.
func (g GenerationConfig) LLM() llm.Config {
	return llm.Config{Provider: g.Provider, APIKey: g.APIKey, Model: g.Model, BaseURL: g.BaseURL}
}

// RateLimit bounds generation requests per user.
type RateLimit struct {
	PerMinute float64 `yaml:"per_minute"`
	Burst     int     `yaml:"burst"`
	// MaxUsers caps how many per-user limiters are kept in memory.
	MaxUsers int `yaml:"max_users"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{Path: "data/guitar-ai.db"},
		Auth:     AuthConfig{TokenTTL: 24 * time.Hour},
		Generation: GenerationConfig{
			Provider:    llm.ProviderOpenAI,
			MaxTokens:   1500,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
			RateLimit:   RateLimit{PerMinute: 10, Burst: 5, MaxUsers: 10000},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (when non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// providerKeyEnv names the API key variable for each provider.
var providerKeyEnv = map[string]string{
	llm.ProviderOpenAI:    "OPENAI_API_KEY",
	llm.ProviderAnthropic: "ANTHROPIC_API_KEY",
	llm.ProviderGemini:    "GEMINI_API_KEY",
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid PORT %q", v)
		}
		c.Server.Port = port
	}
	setString(&c.Database.Path, "DB_PATH")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.GitHub.ClientID, "GITHUB_CLIENT_ID")
	setString(&c.Auth.GitHub.ClientSecret, "GITHUB_CLIENT_SECRET")
	setString(&c.Auth.GitHub.CallbackURL, "GITHUB_CALLBACK_URL")
	setString(&c.Log.Level, "LOG_LEVEL")

	setString(&c.Generation.Provider, "LLM_PROVIDER")
	setString(&c.Generation.Model, "LLM_MODEL")
	if name, ok := providerKeyEnv[c.Generation.Provider]; ok {
		setString(&c.Generation.APIKey, name)
	}

	if c.Auth.GitHub.CallbackURL == "" {
		c.Auth.GitHub.CallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", c.Server.Port)
	}
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// Validate rejects configurations the server cannot start with. A missing
// API key is not an error here: serve checks it, migrate and seed don't
// need one.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 characters"))
	}

	g := c.Generation
	if _, ok := providerKeyEnv[g.Provider]; !ok {
		errs = append(errs, fmt.Errorf("generation.provider %q is not one of openai, anthropic, gemini", g.Provider))
	}
	if g.Temperature < model.MinTemperature || g.Temperature > model.MaxTemperature {
		errs = append(errs, fmt.Errorf("generation.temperature must be between %g and %g", model.MinTemperature, model.MaxTemperature))
	}
	if g.MaxTokens < model.MinMaxTokens || g.MaxTokens > model.MaxMaxTokens {
		errs = append(errs, fmt.Errorf("generation.max_tokens must be between %d and %d", model.MinMaxTokens, model.MaxMaxTokens))
	}
	if g.Timeout <= 0 {
		errs = append(errs, errors.New("generation.timeout must be positive"))
	}
	if g.RateLimit.PerMinute < 0 || g.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("generation.rate_limit values must not be negative"))
	}
	for cat := range g.FallbackExamples {
		if !cat.Valid() {
			errs = append(errs, fmt.Errorf("generation.fallback_examples: unknown type %q", cat))
		}
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Fallbacks returns the configured fallback examples, or the built-in table.
func (g GenerationConfig) Fallbacks() learning.FallbackTable {
	if len(g.FallbackExamples) > 0 {
		return g.FallbackExamples
	}
	return learning.FallbackExamples
}

// NewLogger builds the process logger.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(l.Level)
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not debug, info, warn or error", s)
	}
	return level, nil
}
