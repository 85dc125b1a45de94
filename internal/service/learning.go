package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/guitar-ai/internal/learning"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

const (
	dashboardSize = 10
	statsWindow   = 7 * 24 * time.Hour
)

// Dashboard is the caller's recent learning activity.
type Dashboard struct {
	RecentCorrections []model.Correction       `json:"recentCorrections"`
	RecentExamples    []model.Example          `json:"recentExamples"`
	RecentGenerations []model.GenerationRecord `json:"recentGenerations"`
}

// LearningService exposes what the learning loop knows: the context a
// generation would get right now, recent activity and counters.
type LearningService struct {
	assembler   ContextAssembler
	corrections repository.CorrectionRepository
	examples    repository.ExampleRepository
	generations repository.GenerationRepository
	stats       repository.StatsRepository
	now         func() time.Time
	logger      *slog.Logger
}

func NewLearningService(
	assembler ContextAssembler,
	corrections repository.CorrectionRepository,
	examples repository.ExampleRepository,
	generations repository.GenerationRepository,
	stats repository.StatsRepository,
	logger *slog.Logger,
) *LearningService {
	return &LearningService{
		assembler:   assembler,
		corrections: corrections,
		examples:    examples,
		generations: generations,
		stats:       stats,
		now:         time.Now,
		logger:      logger,
	}
}

// Context returns the learning context a generation of query would receive.
// Selection is random where the assembler samples, so two calls may differ.
func (s *LearningService) Context(ctx context.Context, p model.Principal, category, query string) (*learning.Snapshot, error) {
	cat, err := parseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.assembler.Snapshot(ctx, cat, strings.TrimSpace(query), learning.Scope{OwnerID: p.UserID}), nil
}

// Dashboard returns the ten most recent corrections, examples and
// generations of the caller.
func (s *LearningService) Dashboard(ctx context.Context, p model.Principal) (*Dashboard, error) {
	recent := repository.ListOptions{Limit: dashboardSize}

	corrections, err := s.corrections.List(ctx, p.UserID, recent)
	if err != nil {
		return nil, fmt.Errorf("dashboard corrections: %w", err)
	}
	examples, err := s.examples.List(ctx, p.UserID, repository.ExampleFilter{ListOptions: recent})
	if err != nil {
		return nil, fmt.Errorf("dashboard examples: %w", err)
	}
	generations, err := s.generations.List(ctx, p.UserID, recent)
	if err != nil {
		return nil, fmt.Errorf("dashboard generations: %w", err)
	}

	return &Dashboard{
		RecentCorrections: corrections,
		RecentExamples:    examples,
		RecentGenerations: generations,
	}, nil
}

// Stats returns the caller's totals and the counts of the last seven days.
func (s *LearningService) Stats(ctx context.Context, p model.Principal) (*model.LearningStats, error) {
	st, err := s.stats.Stats(ctx, p.UserID, s.now().Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("learning stats: %w", err)
	}
	return st, nil
}
