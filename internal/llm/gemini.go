package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini calls Models.GenerateContent on the Gemini API backend.
type Gemini struct {
	client *genai.Client
	model  string
}

var _ Client = (*Gemini)(nil)

// NewGemini creates a Gemini client. Unlike the other SDKs, genai validates
// its configuration up front, so construction can fail.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (c *Gemini) Name() string { return ProviderGemini }

func (c *Gemini) Complete(ctx context.Context, req Request) (*Completion, error) {
	model := modelOr(req, c.model)

	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}, gc)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, ErrEmptyResponse
	}

	out := &Completion{Text: text, Model: model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		out.TokensUsed = tokens(int64(resp.UsageMetadata.TotalTokenCount))
	}
	return out, nil
}
