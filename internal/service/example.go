package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// MaxPublicExamples caps the cross-owner public listing.
const MaxPublicExamples = 50

// ExampleInput is the user-supplied part of an Example.
type ExampleInput struct {
	Title       string
	Content     string
	Category    string
	Subcategory string
	Tags        []string
	Visibility  string
}

// ExampleService manages reference examples.
type ExampleService struct {
	repo   repository.ExampleRepository
	logger *slog.Logger
}

func NewExampleService(repo repository.ExampleRepository, logger *slog.Logger) *ExampleService {
	return &ExampleService{repo: repo, logger: logger}
}

// validateExample turns input into a model.Example. Everything the store
// will persist is checked here: required fields, lengths, the tag list.
func validateExample(in ExampleInput) (*model.Example, error) {
	cat, err := parseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	content, err := text("content", in.Content, MaxContentLength, true)
	if err != nil {
		return nil, err
	}
	title, err := text("title", in.Title, MaxTitleLength, false)
	if err != nil {
		return nil, err
	}
	sub, err := text("category", in.Subcategory, MaxSubcategoryLength, false)
	if err != nil {
		return nil, err
	}
	tags, err := model.NormalizeTags(in.Tags)
	if err != nil {
		return nil, apperror.ValidationFailed("tags", err.Error())
	}

	vis := model.Visibility(in.Visibility)
	if vis == "" {
		vis = model.VisibilityPrivate
	}
	if !vis.Valid() {
		return nil, apperror.ValidationFailed("visibility",
			fmt.Sprintf("visibility must be %q or %q", model.VisibilityPrivate, model.VisibilityPublic))
	}

	return &model.Example{
		Title:       title,
		Content:     content,
		Category:    cat,
		Subcategory: sub,
		Tags:        tags,
		Visibility:  vis,
	}, nil
}

func (s *ExampleService) Create(ctx context.Context, p model.Principal, in ExampleInput) (*model.Example, error) {
	ex, err := validateExample(in)
	if err != nil {
		return nil, err
	}
	ex.OwnerID = p.UserID

	if err := s.repo.Create(ctx, ex); err != nil {
		return nil, fmt.Errorf("creating example: %w", err)
	}

	s.logger.Info("example created",
		slog.String("id", ex.ID),
		slog.String("type", string(ex.Category)),
		slog.String("visibility", string(ex.Visibility)),
	)
	return ex, nil
}

// Get returns one of the caller's examples. Someone else's example is
// reported as not found, public or not.
func (s *ExampleService) Get(ctx context.Context, p model.Principal, id string) (*model.Example, error) {
	return s.repo.Get(ctx, p.UserID, id)
}

// List returns the caller's examples, newest first, optionally filtered by
// type.
func (s *ExampleService) List(ctx context.Context, p model.Principal, category string, limit, offset int) ([]model.Example, error) {
	cat, err := optionalCategory(category)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, p.UserID, repository.ExampleFilter{Category: cat, ListOptions: page(limit, offset)})
}

// ListPublic returns public examples from every owner, newest first.
func (s *ExampleService) ListPublic(ctx context.Context, category string, limit int) ([]model.Example, error) {
	cat, err := optionalCategory(category)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > MaxPublicExamples {
		limit = MaxPublicExamples
	}
	return s.repo.ListPublic(ctx, cat, limit)
}

// Update replaces every user-editable field of the caller's example.
func (s *ExampleService) Update(ctx context.Context, p model.Principal, id string, in ExampleInput) (*model.Example, error) {
	current, err := s.repo.Get(ctx, p.UserID, id)
	if err != nil {
		return nil, err
	}

	ex, err := validateExample(in)
	if err != nil {
		return nil, err
	}
	ex.ID = current.ID
	ex.OwnerID = current.OwnerID
	ex.CreatedAt = current.CreatedAt

	if err := s.repo.Update(ctx, ex); err != nil {
		return nil, fmt.Errorf("updating example %s: %w", id, err)
	}
	return ex, nil
}

func (s *ExampleService) Delete(ctx context.Context, p model.Principal, id string) error {
	if err := s.repo.Delete(ctx, p.UserID, id); err != nil {
		return err
	}
	s.logger.Info("example deleted", slog.String("id", id))
	return nil
}
