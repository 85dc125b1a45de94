package model

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Tag limits enforced by NormalizeTags.
const (
	MaxTags      = 20
	MaxTagLength = 50
)

// Example is a curated reference description. Public examples from any user
// are scored against generation input and injected into the prompt.
//
// The wire name of Subcategory is "category" (e.g. "Elektryczna", "Acoustic"),
// while Category is serialised as "type" ("guitar" / "company") to keep the
// JSON shape the frontend already uses.
type Example struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Category    Category   `json:"type"`
	Subcategory string     `json:"category"`
	Tags        []string   `json:"tags"`
	OwnerID     string     `json:"ownerId"`
	Visibility  Visibility `json:"visibility"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// IsPublic reports whether the example is visible to other users.
func (e *Example) IsPublic() bool {
	return e.Visibility == VisibilityPublic
}

// NormalizeTags validates tags at the boundary: trims whitespace, drops
// empties and case-insensitive duplicates, and keeps the original order.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if utf8.RuneCountInString(t) > MaxTagLength {
			return nil, fmt.Errorf("tag %q must be %d characters or less", t, MaxTagLength)
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}

	if len(out) > MaxTags {
		return nil, fmt.Errorf("at most %d tags are allowed", MaxTags)
	}
	return out, nil
}
