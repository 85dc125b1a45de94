package learning

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/guitar-ai/internal/model"
)

// Section headers, in rendering order.
const (
	headerCorrections = "Previous corrections to consider:"
	headerExamples    = "Example descriptions:"
	headerAdjustments = "Model adjustments:"
)

const (
	// MaxCorrections is the most corrections rendered into one context.
	MaxCorrections = 5

	correctionPool = 50
	examplePool    = 50
)

// The assembler only needs these read paths. The repository interfaces
// satisfy them, and tests pass small fakes.
type (
	CorrectionSource interface {
		ListUnapplied(ctx context.Context, ownerID string, category model.Category, limit int) ([]model.Correction, error)
	}
	ExampleSource interface {
		ListPublic(ctx context.Context, category model.Category, limit int) ([]model.Example, error)
	}
	AdjustmentSource interface {
		ListActive(ctx context.Context, ownerID string, category model.Category) ([]model.Adjustment, error)
	}
)

// Scope says whose private data may be read. Public examples are always
// read across owners.
type Scope struct {
	OwnerID string
}

// Snapshot is one assembled context: what was selected and how it renders.
type Snapshot struct {
	Corrections []model.Correction `json:"corrections"`
	Examples    []model.Example    `json:"examples"`
	Adjustments []model.Adjustment `json:"adjustments"`
	Text        string             `json:"text"`
}

// Assembler builds learning contexts.
//
// It never returns an error. A failing source is logged and its section is
// left out, so a broken table degrades the prompt instead of failing the
// generation.
type Assembler struct {
	corrections CorrectionSource
	examples    ExampleSource
	adjustments AdjustmentSource
	scorer      *Scorer
	rand        RandSource
	logger      *slog.Logger
}

// NewAssembler wires the sources. A nil src uses DefaultRand for both the
// correction sample and the scorer's fallback.
func NewAssembler(c CorrectionSource, e ExampleSource, a AdjustmentSource, src RandSource, logger *slog.Logger) *Assembler {
	if src == nil {
		src = DefaultRand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		corrections: c,
		examples:    e,
		adjustments: a,
		scorer:      NewScorer(src),
		rand:        src,
		logger:      logger,
	}
}

// Assemble returns the rendered context for a generation, or "" when there
// is nothing to show.
func (a *Assembler) Assemble(ctx context.Context, category model.Category, query string, scope Scope) string {
	return a.Snapshot(ctx, category, query, scope).Text
}

// Snapshot selects corrections, examples and adjustments and renders them.
// Sections appear in that order and empty ones are omitted.
func (a *Assembler) Snapshot(ctx context.Context, category model.Category, query string, scope Scope) *Snapshot {
	snap := &Snapshot{
		Corrections: a.pickCorrections(ctx, category, scope),
		Examples:    a.pickExamples(ctx, category, query),
		Adjustments: a.pickAdjustments(ctx, category, scope),
	}

	var parts []string
	if s := renderCorrections(snap.Corrections); s != "" {
		parts = append(parts, s)
	}
	if s := renderExamples(snap.Examples); s != "" {
		parts = append(parts, s)
	}
	if s := renderAdjustments(snap.Adjustments); s != "" {
		parts = append(parts, s)
	}
	snap.Text = strings.Join(parts, "\n\n")

	return snap
}

// pickCorrections draws a random subset rather than the newest ones, so an
// old correction still gets a chance to shape later generations.
func (a *Assembler) pickCorrections(ctx context.Context, category model.Category, scope Scope) []model.Correction {
	if scope.OwnerID == "" {
		return nil
	}
	pool, err := a.corrections.ListUnapplied(ctx, scope.OwnerID, category, correctionPool)
	if err != nil {
		a.logger.Warn("learning context: loading corrections", "type", category, "error", err)
		return nil
	}
	return sample(a.rand, pool, MaxCorrections)
}

func (a *Assembler) pickExamples(ctx context.Context, category model.Category, query string) []model.Example {
	pool, err := a.examples.ListPublic(ctx, category, examplePool)
	if err != nil {
		a.logger.Warn("learning context: loading examples", "type", category, "error", err)
		return nil
	}
	return a.scorer.Rank(pool, query)
}

func (a *Assembler) pickAdjustments(ctx context.Context, category model.Category, scope Scope) []model.Adjustment {
	list, err := a.adjustments.ListActive(ctx, scope.OwnerID, category)
	if err != nil {
		a.logger.Warn("learning context: loading adjustments", "type", category, "error", err)
		return nil
	}

	out := make([]model.Adjustment, 0, len(list))
	for _, adj := range list {
		if adj.AppliesTo(category) {
			out = append(out, adj)
		}
	}
	slices.SortStableFunc(out, func(x, y model.Adjustment) int { return y.Priority - x.Priority })
	return out
}

func renderCorrections(cs []model.Correction) string {
	lines := make([]string, 0, len(cs))
	for _, c := range cs {
		lines = append(lines, "- "+c.OriginalText+" → "+c.CorrectedText)
	}
	return section(headerCorrections, lines)
}

func renderExamples(es []model.Example) string {
	lines := make([]string, 0, len(es))
	for _, e := range es {
		lines = append(lines, "- "+exampleLine(e))
	}
	return section(headerExamples, lines)
}

// exampleLine renders "[subcategory] (tags: a, b) content", dropping the
// bracket or tag clause when it would be empty.
func exampleLine(e model.Example) string {
	var b strings.Builder
	if sub := strings.TrimSpace(e.Subcategory); sub != "" {
		b.WriteString("[" + sub + "] ")
	}
	if len(e.Tags) > 0 {
		b.WriteString("(tags: " + strings.Join(e.Tags, ", ") + ") ")
	}
	b.WriteString(strings.TrimSpace(e.Content))
	return b.String()
}

func renderAdjustments(as []model.Adjustment) string {
	lines := make([]string, 0, len(as))
	for _, adj := range as {
		if adj.Value == nil {
			continue
		}
		lines = append(lines, "- "+string(adj.Kind())+": "+adj.Value.String())
	}
	return section(headerAdjustments, lines)
}

func section(header string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// Overrides returns the temperature and max-token values set by the highest
// priority adjustments in as, if any. as must already be ordered by
// priority, as Snapshot returns it.
func Overrides(as []model.Adjustment) (temperature *float64, maxTokens *int) {
	for _, adj := range as {
		switch v := adj.Value.(type) {
		case model.TemperatureOverride:
			if temperature == nil {
				t := v.Value
				temperature = &t
			}
		case model.MaxTokensOverride:
			if maxTokens == nil {
				n := v.Value
				maxTokens = &n
			}
		}
	}
	return temperature, maxTokens
}

