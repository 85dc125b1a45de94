package model

import (
	"fmt"
	"strings"
	"time"
)

// CorrectionKind classifies what a correction fixes.
type CorrectionKind string

const (
	CorrectionGeneral     CorrectionKind = "general"
	CorrectionGrammar     CorrectionKind = "grammar"
	CorrectionFactual     CorrectionKind = "factual"
	CorrectionStyle       CorrectionKind = "style"
	CorrectionTerminology CorrectionKind = "terminology"
)

// ParseCorrectionKind defaults an empty kind to "general".
func ParseCorrectionKind(s string) (CorrectionKind, error) {
	k := CorrectionKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "":
		return CorrectionGeneral, nil
	case CorrectionGeneral, CorrectionGrammar, CorrectionFactual, CorrectionStyle, CorrectionTerminology:
		return k, nil
	}
	return "", fmt.Errorf("unknown correction kind %q", s)
}

// Correction pairs a piece of generated text with the user's fix.
//
// Applied only ever moves from false to true: the repository exposes
// MarkApplied but nothing that clears the flag.
type Correction struct {
	ID            string         `json:"id"`
	OriginalText  string         `json:"originalText"`
	CorrectedText string         `json:"correctedText"`
	Category      Category       `json:"type"`
	Kind          CorrectionKind `json:"correctionKind"`
	OwnerID       string         `json:"ownerId"`
	GenerationID  *string        `json:"generationId,omitempty"` // weak reference, may dangle to NULL
	Applied       bool           `json:"applied"`
	Notes         string         `json:"notes"`
	CreatedAt     time.Time      `json:"createdAt"`
}
