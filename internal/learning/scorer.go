// Package learning builds the "learning context" injected into generation
// prompts: the user's pending corrections, the most relevant public example
// descriptions and the active model adjustments.
//
// HOW RELEVANCE WORKS:
// There is no embedding search here. An example is relevant when pieces of it
// (subcategory, title, tags, longer content words) literally occur in the
// user's input. Weights favour the curated fields:
//
//	subcategory  3
//	title        2
//	each tag     1
//	content word 0.5  (per token longer than 3 runes)
//
// When nothing matches, the scorer falls back to a random sample so the
// prompt still shows the model what a good description looks like.
package learning

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/sakif/guitar-ai/internal/model"
)

// Scoring weights.
const (
	subcategoryWeight = 3.0
	titleWeight       = 2.0
	tagWeight         = 1.0
	wordWeight        = 0.5

	minWordRunes = 4

	// MaxExamples is the most examples Rank ever returns.
	MaxExamples = 3
)

// Scorer ranks candidate examples against free-text input.
type Scorer struct {
	rand RandSource
}

// NewScorer returns a Scorer. A nil src uses DefaultRand.
func NewScorer(src RandSource) *Scorer {
	if src == nil {
		src = DefaultRand
	}
	return &Scorer{rand: src}
}

// Rank returns at most MaxExamples candidates ordered by descending score.
// Zero-scoring candidates are dropped and ties keep input order. If no
// candidate scores, or the query is blank, a random sample of up to
// MaxExamples candidates is returned instead.
func (s *Scorer) Rank(candidates []model.Example, query string) []model.Example {
	if len(candidates) == 0 {
		return nil
	}

	q := normalizeQuery(query)
	if q == "" {
		return sample(s.rand, candidates, MaxExamples)
	}

	type scored struct {
		ex    model.Example
		score float64
	}
	hits := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if sc := score(c, q); sc > 0 {
			hits = append(hits, scored{ex: c, score: sc})
		}
	}

	if len(hits) == 0 {
		return sample(s.rand, candidates, MaxExamples)
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	n := min(len(hits), MaxExamples)
	out := make([]model.Example, n)
	for i := range out {
		out[i] = hits[i].ex
	}
	return out
}

// Score returns the relevance of ex for query.
func Score(ex model.Example, query string) float64 {
	return score(ex, normalizeQuery(query))
}

// score expects q already normalised by normalizeQuery.
func score(ex model.Example, q string) float64 {
	if q == "" {
		return 0
	}

	var total float64
	if containsFold(q, ex.Subcategory) {
		total += subcategoryWeight
	}
	if containsFold(q, ex.Title) {
		total += titleWeight
	}
	for _, tag := range ex.Tags {
		if containsFold(q, tag) {
			total += tagWeight
		}
	}
	for _, w := range contentWords(ex.Content) {
		if strings.Contains(q, w) {
			total += wordWeight
		}
	}
	return total
}

// normalizeQuery lower-cases the query and collapses runs of whitespace, so
// "Fender\n  Strat" matches the title "fender strat".
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func containsFold(q, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	return needle != "" && strings.Contains(q, needle)
}

// contentWords returns the lower-cased whitespace-separated tokens of
// content that are longer than 3 runes. Tokens keep their punctuation and
// repeats, so "tone, tone" yields two "tone," entries.
func contentWords(content string) []string {
	fields := strings.Fields(strings.ToLower(content))
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minWordRunes {
			words = append(words, f)
		}
	}
	return words
}
