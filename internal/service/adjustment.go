package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// AdjustmentInput describes a directive or parameter override.
//
// Value is parsed according to Kind: free text for instruction, style and
// terminology; a number for temperature and max_tokens.
type AdjustmentInput struct {
	Kind     string
	Key      string
	Value    string
	Category string // "" applies to every type
	Active   *bool  // nil means true on create, unchanged on update
	Priority int
	// SystemWide adjustments apply to every user. Admins only.
	SystemWide bool
}

// AdjustmentService manages the adjustment registry.
type AdjustmentService struct {
	repo   repository.AdjustmentRepository
	logger *slog.Logger
}

func NewAdjustmentService(repo repository.AdjustmentRepository, logger *slog.Logger) *AdjustmentService {
	return &AdjustmentService{repo: repo, logger: logger}
}

func (s *AdjustmentService) Create(ctx context.Context, p model.Principal, in AdjustmentInput) (*model.Adjustment, error) {
	if in.SystemWide && !p.IsAdmin() {
		return nil, apperror.Forbidden("only admins can create system-wide adjustments")
	}

	a := &model.Adjustment{Active: true}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if err := applyAdjustmentInput(a, in); err != nil {
		return nil, err
	}
	if !in.SystemWide {
		owner := p.UserID
		a.OwnerID = &owner
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("creating adjustment: %w", err)
	}

	s.logger.Info("adjustment created",
		slog.String("id", a.ID),
		slog.String("kind", string(a.Kind())),
		slog.Bool("systemWide", a.OwnerID == nil),
	)
	return a, nil
}

// List returns the caller's adjustments followed by the system-wide ones.
func (s *AdjustmentService) List(ctx context.Context, p model.Principal) ([]model.Adjustment, error) {
	return s.repo.List(ctx, p.UserID)
}

// Update replaces the adjustment's kind, key, value, scope and priority.
// Everyone can see system-wide adjustments; only admins can change them.
func (s *AdjustmentService) Update(ctx context.Context, p model.Principal, id string, in AdjustmentInput) (*model.Adjustment, error) {
	a, err := s.resolve(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if in.Active != nil {
		a.Active = *in.Active
	}
	if err := applyAdjustmentInput(a, in); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("updating adjustment %s: %w", id, err)
	}
	return a, nil
}

func (s *AdjustmentService) Delete(ctx context.Context, p model.Principal, id string) error {
	a, err := s.resolve(ctx, p, id)
	if err != nil {
		return err
	}

	owner := ""
	if a.OwnerID != nil {
		owner = *a.OwnerID
	}
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		return err
	}
	s.logger.Info("adjustment deleted", slog.String("id", id))
	return nil
}

// resolve finds an adjustment the caller may modify: their own, or a
// system-wide one when they are an admin.
func (s *AdjustmentService) resolve(ctx context.Context, p model.Principal, id string) (*model.Adjustment, error) {
	a, err := s.repo.Get(ctx, p.UserID, id)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	a, sysErr := s.repo.Get(ctx, "", id)
	if sysErr != nil {
		if errors.Is(sysErr, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, sysErr
	}
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("only admins can change system-wide adjustments")
	}
	return a, nil
}

func applyAdjustmentInput(a *model.Adjustment, in AdjustmentInput) error {
	value, err := model.ParseAdjustmentValue(model.AdjustmentKind(in.Kind), in.Value)
	if err != nil {
		return apperror.ValidationFailed("value", err.Error())
	}
	key, err := text("key", in.Key, MaxKeyLength, false)
	if err != nil {
		return err
	}
	cat, err := optionalCategory(in.Category)
	if err != nil {
		return err
	}

	a.Value = value
	a.Key = key
	a.Priority = in.Priority
	a.Category = nil
	if cat != "" {
		a.Category = &cat
	}
	return nil
}
