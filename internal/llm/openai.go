package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAI calls the Responses API.
type OpenAI struct {
	client openai.Client
	model  string
}

var _ Client = (*OpenAI)(nil)

// NewOpenAI creates an OpenAI client.
func NewOpenAI(cfg Config) *OpenAI {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}
}

func (c *OpenAI) Name() string { return ProviderOpenAI }

// Complete sends the system prompt and the user prompt as two input messages.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Completion, error) {
	input := make(responses.ResponseInputParam, 0, 2)
	if req.System != "" {
		input = append(input, responses.ResponseInputItemParamOfMessage(req.System, responses.EasyInputMessageRoleSystem))
	}
	input = append(input, responses.ResponseInputItemParamOfMessage(req.Prompt, responses.EasyInputMessageRoleUser))

	params := responses.ResponseNewParams{
		Model:       shared.ResponsesModel(modelOr(req, c.model)),
		Input:       responses.ResponseNewParamsInputUnion{OfInputItemList: input},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxOutputTokens = openai.Int(int64(req.MaxTokens))
	}

	result, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	text := strings.TrimSpace(result.OutputText())
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:       text,
		TokensUsed: tokens(result.Usage.TotalTokens),
		Model:      string(result.Model),
	}, nil
}
