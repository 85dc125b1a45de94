package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// TemplateInput is the user-editable part of a prompt template. The type is
// fixed at creation; Update ignores it.
type TemplateInput struct {
	Category string
	Title    string
	Content  string
	Active   bool
}

// TemplateService manages versioned prompt templates. At most one template
// per (user, type) is active; the store enforces it.
type TemplateService struct {
	repo   repository.TemplateRepository
	logger *slog.Logger
}

func NewTemplateService(repo repository.TemplateRepository, logger *slog.Logger) *TemplateService {
	return &TemplateService{repo: repo, logger: logger}
}

func (s *TemplateService) Create(ctx context.Context, p model.Principal, in TemplateInput) (*model.PromptTemplate, error) {
	cat, err := parseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	title, content, err := validateTemplate(in)
	if err != nil {
		return nil, err
	}

	t := &model.PromptTemplate{
		Category: cat,
		Title:    title,
		Content:  content,
		OwnerID:  p.UserID,
		Active:   in.Active,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating template: %w", err)
	}

	s.logger.Info("template created",
		slog.String("id", t.ID),
		slog.String("type", string(t.Category)),
		slog.Bool("active", t.Active),
	)
	return t, nil
}

func (s *TemplateService) Get(ctx context.Context, p model.Principal, id string) (*model.PromptTemplate, error) {
	return s.repo.Get(ctx, p.UserID, id)
}

func (s *TemplateService) List(ctx context.Context, p model.Principal) ([]model.PromptTemplate, error) {
	return s.repo.List(ctx, p.UserID)
}

// GetActive returns the caller's active template for the type, or NotFound.
func (s *TemplateService) GetActive(ctx context.Context, p model.Principal, category string) (*model.PromptTemplate, error) {
	cat, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.repo.GetActive(ctx, p.UserID, cat)
}

// Update replaces title, content and the active flag and bumps the version.
func (s *TemplateService) Update(ctx context.Context, p model.Principal, id string, in TemplateInput) (*model.PromptTemplate, error) {
	title, content, err := validateTemplate(in)
	if err != nil {
		return nil, err
	}

	t := &model.PromptTemplate{
		ID:      id,
		OwnerID: p.UserID,
		Title:   title,
		Content: content,
		Active:  in.Active,
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info("template updated", slog.String("id", t.ID), slog.Int("version", t.Version))
	return t, nil
}

// Activate makes the template the caller's active one for its type,
// deactivating the previous one.
func (s *TemplateService) Activate(ctx context.Context, p model.Principal, id string) (*model.PromptTemplate, error) {
	t, err := s.repo.Activate(ctx, p.UserID, id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("template activated",
		slog.String("id", t.ID),
		slog.String("type", string(t.Category)),
		slog.Int("version", t.Version),
	)
	return t, nil
}

func (s *TemplateService) Delete(ctx context.Context, p model.Principal, id string) error {
	return s.repo.Delete(ctx, p.UserID, id)
}

func validateTemplate(in TemplateInput) (title, content string, err error) {
	if title, err = text("title", in.Title, MaxTitleLength, true); err != nil {
		return "", "", err
	}
	if content, err = text("content", in.Content, MaxTemplateLength, true); err != nil {
		return "", "", err
	}
	return title, content, nil
}
