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

// CorrectionInput is a user's fix of a generated description.
type CorrectionInput struct {
	OriginalText  string
	CorrectedText string
	Category      string
	Kind          string
	// GenerationID optionally links the correction to one of the caller's
	// generation records.
	GenerationID string
	Notes        string
}

// CorrectionService records corrections. Unapplied corrections feed the
// learning context; applying one is permanent.
type CorrectionService struct {
	repo        repository.CorrectionRepository
	generations repository.GenerationRepository
	logger      *slog.Logger
}

func NewCorrectionService(
	repo repository.CorrectionRepository,
	generations repository.GenerationRepository,
	logger *slog.Logger,
) *CorrectionService {
	return &CorrectionService{repo: repo, generations: generations, logger: logger}
}

func (s *CorrectionService) Submit(ctx context.Context, p model.Principal, in CorrectionInput) (*model.Correction, error) {
	cat, err := parseCategory(in.Category)
	if err != nil {
		return nil, err
	}
	original, err := text("originalText", in.OriginalText, MaxContentLength, true)
	if err != nil {
		return nil, err
	}
	corrected, err := text("correctedText", in.CorrectedText, MaxContentLength, true)
	if err != nil {
		return nil, err
	}
	notes, err := text("notes", in.Notes, MaxNotesLength, false)
	if err != nil {
		return nil, err
	}
	kind, err := model.ParseCorrectionKind(in.Kind)
	if err != nil {
		return nil, apperror.ValidationFailed("correctionKind", err.Error())
	}

	c := &model.Correction{
		OriginalText:  original,
		CorrectedText: corrected,
		Category:      cat,
		Kind:          kind,
		OwnerID:       p.UserID,
		Notes:         notes,
	}

	if in.GenerationID != "" {
		if _, err := s.generations.Get(ctx, p.UserID, in.GenerationID); err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return nil, apperror.ValidationFailed("generationId", "generation "+in.GenerationID+" does not exist")
			}
			return nil, fmt.Errorf("checking generation %s: %w", in.GenerationID, err)
		}
		genID := in.GenerationID
		c.GenerationID = &genID
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating correction: %w", err)
	}

	s.logger.Info("correction submitted",
		slog.String("id", c.ID),
		slog.String("type", string(c.Category)),
		slog.String("kind", string(c.Kind)),
	)
	return c, nil
}

func (s *CorrectionService) List(ctx context.Context, p model.Principal, limit, offset int) ([]model.Correction, error) {
	return s.repo.List(ctx, p.UserID, page(limit, offset))
}

// Apply marks the correction as applied. Applying twice is harmless; there
// is no way back.
func (s *CorrectionService) Apply(ctx context.Context, p model.Principal, id string) (*model.Correction, error) {
	if err := s.repo.MarkApplied(ctx, p.UserID, id); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, p.UserID, id)
}
