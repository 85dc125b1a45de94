package model

import "time"

// PromptTemplate is a user-authored prompt for one category.
//
// For a given (OwnerID, Category) at most one template is Active. Version
// starts at 1 and goes up by exactly one on every update or activation of
// this template; deactivating it as a side effect of a sibling's activation
// leaves Version alone.
type PromptTemplate struct {
	ID        string    `json:"id"`
	Category  Category  `json:"type"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	OwnerID   string    `json:"ownerId"`
	Active    bool      `json:"active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
