// Package llm is the text-generation collaborator. The rest of the service
// talks to a Client; the concrete provider (OpenAI, Anthropic or Gemini) is
// picked once, from configuration, by New.
//
// Providers make exactly one call per Complete. Retries and backoff are
// disabled on every SDK client: a failed generation is reported to the user
// as is.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ErrEmptyResponse is returned when the model answered with no text.
var ErrEmptyResponse = errors.New("empty response from model")

// Request is a single, non-streaming completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// Model overrides the provider's configured model when non-empty.
	Model string
}

// Completion is the model's answer. TokensUsed is nil when the provider
// did not report usage.
type Completion struct {
	Text       string
	TokensUsed *int
	Model      string
}

// Client generates text.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	// BaseURL points the SDK at a different endpoint (proxies, tests).
	BaseURL string
}

// New builds the Client named by cfg.Provider. An empty provider means
// OpenAI.
func New(ctx context.Context, cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: %s API key is required", providerOrDefault(cfg.Provider))
	}

	switch providerOrDefault(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAI(cfg), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

func providerOrDefault(p string) string {
	if p == "" {
		return ProviderOpenAI
	}
	return p
}

func tokens(n int64) *int {
	if n <= 0 {
		return nil
	}
	v := int(n)
	return &v
}

func modelOr(req Request, fallback string) string {
	if req.Model != "" {
		return req.Model
	}
	return fallback
}
