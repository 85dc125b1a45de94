package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/learning"
	"github.com/sakif/guitar-ai/internal/llm"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// MaxInputLength bounds the free text a generation request may carry.
const MaxInputLength = 10000

// ContextAssembler builds the learning context. *learning.Assembler is the
// production implementation.
type ContextAssembler interface {
	Snapshot(ctx context.Context, category model.Category, query string, scope learning.Scope) *learning.Snapshot
}

// GenerationSettings are the request defaults. Adjustments in scope may
// override Temperature and MaxTokens per request.
type GenerationSettings struct {
	Model        string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	SystemPrompt string
	Fallbacks    learning.FallbackTable
}

// GenerationResult is what the caller gets back from a successful generation.
type GenerationResult struct {
	RecordID       string         `json:"id"`
	Text           string         `json:"generatedText"`
	Category       model.Category `json:"type"`
	TokensUsed     *int           `json:"tokensUsed,omitempty"`
	ModelVersion   string         `json:"modelVersion"`
	ProcessingTime float64        `json:"processingTime"`
	// TemplateID is empty when the built-in template was used.
	TemplateID string `json:"templateId,omitempty"`
}

// SaveInput carries the example fields a user adds when keeping a
// generation. Content and type come from the generation itself.
type SaveInput struct {
	Title       string
	Subcategory string
	Tags        []string
	Visibility  string
}

// GenerationService orchestrates one generation: learning context, template,
// collaborator call, record.
//
// FLOW:
//  1. Validate type and input before touching anything external
//  2. Assemble the learning context for (caller, type, input)
//  3. Pick the caller's active template, else the built-in one
//  4. Render the prompt; apply temperature / max_tokens overrides
//  5. Call the model under an explicit timeout
//  6. Persist exactly one GenerationRecord, only on success
type GenerationService struct {
	client      llm.Client
	assembler   ContextAssembler
	templates   repository.TemplateRepository
	generations repository.GenerationRepository
	examples    repository.ExampleRepository
	settings    GenerationSettings
	logger      *slog.Logger
}

func NewGenerationService(
	client llm.Client,
	assembler ContextAssembler,
	templates repository.TemplateRepository,
	generations repository.GenerationRepository,
	examples repository.ExampleRepository,
	settings GenerationSettings,
	logger *slog.Logger,
) *GenerationService {
	if settings.SystemPrompt == "" {
		settings.SystemPrompt = learning.SystemPrompt
	}
	if settings.Fallbacks == nil {
		settings.Fallbacks = learning.FallbackExamples
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 60 * time.Second
	}
	return &GenerationService{
		client:      client,
		assembler:   assembler,
		templates:   templates,
		generations: generations,
		examples:    examples,
		settings:    settings,
		logger:      logger,
	}
}

// prompt is everything Generate decided before calling the model.
type prompt struct {
	text        string
	templateID  string
	temperature float64
	maxTokens   int
}

// Generate produces a description of input. A collaborator failure comes
// back as apperror.ErrCollaborator carrying the collaborator's message, and
// leaves no record behind.
func (s *GenerationService) Generate(ctx context.Context, p model.Principal, category, input string) (*GenerationResult, error) {
	cat, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, apperror.ValidationFailed("inputText", "input text is required")
	}
	if utf8.RuneCountInString(input) > MaxInputLength {
		return nil, apperror.ValidationFailed("inputText",
			fmt.Sprintf("input text must be %d characters or less", MaxInputLength))
	}

	pr, err := s.buildPrompt(ctx, p, cat, input)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	start := time.Now()
	out, err := s.client.Complete(callCtx, llm.Request{
		System:      s.settings.SystemPrompt,
		Prompt:      pr.text,
		MaxTokens:   pr.maxTokens,
		Temperature: pr.temperature,
		Model:       s.settings.Model,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.logger.Warn("generation failed",
			slog.String("provider", s.client.Name()),
			slog.String("type", string(cat)),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Collaborator(err)
	}

	rec := &model.GenerationRecord{
		InputText:      input,
		GeneratedText:  out.Text,
		Category:       cat,
		OwnerID:        p.UserID,
		TokensUsed:     out.TokensUsed,
		ModelVersion:   s.modelVersion(out),
		ProcessingTime: elapsed.Seconds(),
	}
	if err := s.generations.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("recording generation: %w", err)
	}

	s.logger.Info("description generated",
		slog.String("id", rec.ID),
		slog.String("type", string(cat)),
		slog.String("model", rec.ModelVersion),
		slog.Bool("customTemplate", pr.templateID != ""),
		slog.Duration("elapsed", elapsed),
	)

	return &GenerationResult{
		RecordID:       rec.ID,
		Text:           rec.GeneratedText,
		Category:       cat,
		TokensUsed:     rec.TokensUsed,
		ModelVersion:   rec.ModelVersion,
		ProcessingTime: rec.ProcessingTime,
		TemplateID:     pr.templateID,
	}, nil
}

func (s *GenerationService) buildPrompt(ctx context.Context, p model.Principal, cat model.Category, input string) (*prompt, error) {
	snap := s.assembler.Snapshot(ctx, cat, input, learning.Scope{OwnerID: p.UserID})
	learned := snap.Text

	pr := &prompt{
		temperature: s.settings.Temperature,
		maxTokens:   s.settings.MaxTokens,
	}
	t, n := learning.Overrides(snap.Adjustments)
	if t != nil {
		pr.temperature = *t
	}
	if n != nil {
		pr.maxTokens = *n
	}

	tmpl, err := s.templates.GetActive(ctx, p.UserID, cat)
	switch {
	case err == nil:
		pr.templateID = tmpl.ID
		pr.text = learning.RenderPrompt(tmpl.Content, learned, input)
		return pr, nil
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("loading active template: %w", err)
	}

	// Built-in template: never send it without reference descriptions.
	if learned == "" {
		learned = s.settings.Fallbacks.Section(cat)
	}
	pr.text = learning.RenderPrompt(learning.DefaultTemplate(cat), learned, input)
	return pr, nil
}

func (s *GenerationService) modelVersion(out *llm.Completion) string {
	switch {
	case out.Model != "":
		return out.Model
	case s.settings.Model != "":
		return s.settings.Model
	default:
		return s.client.Name()
	}
}

// List returns the caller's generation records, newest first.
func (s *GenerationService) List(ctx context.Context, p model.Principal, limit, offset int) ([]model.GenerationRecord, error) {
	return s.generations.List(ctx, p.UserID, page(limit, offset))
}

// SaveAsExample keeps one of the caller's generations as a reference
// example and marks the generation as saved, in one transaction.
func (s *GenerationService) SaveAsExample(ctx context.Context, p model.Principal, generationID string, in SaveInput) (*model.Example, error) {
	gen, err := s.generations.Get(ctx, p.UserID, generationID)
	if err != nil {
		return nil, err
	}

	title := in.Title
	if strings.TrimSpace(title) == "" {
		title = truncate(gen.InputText, 80)
	}
	ex, err := validateExample(ExampleInput{
		Title:       title,
		Content:     gen.GeneratedText,
		Category:    string(gen.Category),
		Subcategory: in.Subcategory,
		Tags:        in.Tags,
		Visibility:  in.Visibility,
	})
	if err != nil {
		return nil, err
	}
	ex.OwnerID = p.UserID

	if err := s.examples.CreateFromGeneration(ctx, ex, gen.ID); err != nil {
		return nil, fmt.Errorf("saving generation %s as example: %w", gen.ID, err)
	}

	s.logger.Info("generation saved as example",
		slog.String("generationID", gen.ID),
		slog.String("exampleID", ex.ID),
	)
	return ex, nil
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:max]))
}
