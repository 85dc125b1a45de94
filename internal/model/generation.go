package model

import "time"

// GenerationRecord is the stored result of one successful generation.
// Only WasSaved may change after creation.
type GenerationRecord struct {
	ID             string    `json:"id"`
	InputText      string    `json:"inputText"`
	GeneratedText  string    `json:"generatedText"`
	Category       Category  `json:"type"`
	OwnerID        string    `json:"ownerId"`
	TokensUsed     *int      `json:"tokensUsed,omitempty"`
	ModelVersion   string    `json:"modelVersion"`
	ProcessingTime float64   `json:"processingTime"` // seconds
	WasSaved       bool      `json:"wasSaved"`
	CreatedAt      time.Time `json:"createdAt"`
}

// LearningStats aggregates a user's activity for the dashboard.
type LearningStats struct {
	TotalCorrections  int `json:"totalCorrections"`
	TotalExamples     int `json:"totalExamples"`
	TotalGenerations  int `json:"totalGenerations"`
	RecentCorrections int `json:"recentCorrections"`
	RecentGenerations int `json:"recentGenerations"`
}
