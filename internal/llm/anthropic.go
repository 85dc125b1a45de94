package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
	// The Messages API requires max_tokens on every call.
	anthropicMaxTokens = 1500
)

// Anthropic calls the Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
}

var _ Client = (*Anthropic)(nil)

// NewAnthropic creates an Anthropic client.
func NewAnthropic(cfg Config) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: anthropic.NewClient(opts...), model: model}
}

func (c *Anthropic) Name() string { return ProviderAnthropic }

func (c *Anthropic) Complete(ctx context.Context, req Request) (*Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelOr(req, c.model)),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if t, ok := block.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(t.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:       text,
		TokensUsed: tokens(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		Model:      string(msg.Model),
	}, nil
}
