// Package repository declares the persistence interfaces the service layer
// depends on. The SQLite implementation lives in repository/sqlite; tests use
// in-memory fakes.
//
// Every owner-scoped method takes the owner's user ID and treats rows owned
// by someone else exactly like missing rows (apperror.ErrNotFound).
package repository

import (
	"context"
	"time"

	"github.com/sakif/guitar-ai/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// ExampleFilter narrows an owner's example listing. A zero Category lists
// every category.
type ExampleFilter struct {
	Category model.Category
	ListOptions
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHub links (or creates) the account for a GitHub identity.
	UpsertGitHub(ctx context.Context, user *model.User) error
}

type ExampleRepository interface {
	Create(ctx context.Context, ex *model.Example) error
	Get(ctx context.Context, ownerID, id string) (*model.Example, error)
	List(ctx context.Context, ownerID string, f ExampleFilter) ([]model.Example, error)
	// ListPublic returns public examples of any owner, newest first.
	ListPublic(ctx context.Context, category model.Category, limit int) ([]model.Example, error)
	Update(ctx context.Context, ex *model.Example) error
	Delete(ctx context.Context, ownerID, id string) error
	// CreateFromGeneration inserts ex and marks the generation as saved, in
	// one transaction.
	CreateFromGeneration(ctx context.Context, ex *model.Example, generationID string) error
}

type CorrectionRepository interface {
	Create(ctx context.Context, c *model.Correction) error
	Get(ctx context.Context, ownerID, id string) (*model.Correction, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]model.Correction, error)
	// ListUnapplied returns the owner's unapplied corrections of a category,
	// newest first.
	ListUnapplied(ctx context.Context, ownerID string, category model.Category, limit int) ([]model.Correction, error)
	// MarkApplied sets applied = true. There is deliberately no inverse.
	MarkApplied(ctx context.Context, ownerID, id string) error
}

// AdjustmentRepository treats an empty ownerID in Get and Delete (and a nil
// Adjustment.OwnerID in Update) as "system-wide".
type AdjustmentRepository interface {
	Create(ctx context.Context, a *model.Adjustment) error
	Get(ctx context.Context, ownerID, id string) (*model.Adjustment, error)
	List(ctx context.Context, ownerID string) ([]model.Adjustment, error)
	// ListActive returns active adjustments for the category (or global ones)
	// that belong to ownerID or to nobody, ordered by priority descending.
	ListActive(ctx context.Context, ownerID string, category model.Category) ([]model.Adjustment, error)
	Update(ctx context.Context, a *model.Adjustment) error
	Delete(ctx context.Context, ownerID, id string) error
}

type TemplateRepository interface {
	// Create inserts t with version 1. If t.Active, sibling templates of the
	// same (owner, category) are deactivated in the same transaction.
	Create(ctx context.Context, t *model.PromptTemplate) error
	Get(ctx context.Context, ownerID, id string) (*model.PromptTemplate, error)
	List(ctx context.Context, ownerID string) ([]model.PromptTemplate, error)
	// GetActive returns the active template for (owner, category) or
	// apperror.ErrNotFound.
	GetActive(ctx context.Context, ownerID string, category model.Category) (*model.PromptTemplate, error)
	// Update saves title/content/active and bumps the version by one.
	Update(ctx context.Context, t *model.PromptTemplate) error
	// Activate makes id the single active template of its (owner, category)
	// and bumps its version, atomically.
	Activate(ctx context.Context, ownerID, id string) (*model.PromptTemplate, error)
	Delete(ctx context.Context, ownerID, id string) error
}

type GenerationRepository interface {
	Create(ctx context.Context, g *model.GenerationRecord) error
	Get(ctx context.Context, ownerID, id string) (*model.GenerationRecord, error)
	List(ctx context.Context, ownerID string, opts ListOptions) ([]model.GenerationRecord, error)
}

// StatsRepository backs the learning dashboard.
type StatsRepository interface {
	Stats(ctx context.Context, ownerID string, since time.Time) (*model.LearningStats, error)
}
