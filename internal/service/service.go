// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlite.DB, and every operation
// receives the caller as an explicit model.Principal. Nothing here knows
// about HTTP: validation failures come back as apperror values and the
// handler layer maps them to status codes.
package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/guitar-ai/internal/apperror"
	"github.com/sakif/guitar-ai/internal/model"
	"github.com/sakif/guitar-ai/internal/repository"
)

// Validation constants.
const (
	MaxTitleLength       = 200
	MaxContentLength     = 10000
	MaxSubcategoryLength = 100
	MaxNotesLength       = 2000
	MaxTemplateLength    = 20000
	MaxKeyLength         = 100

	DefaultListLimit = 20
	MaxListLimit     = 100
)

// parseCategory validates the wire-format "type" value.
func parseCategory(s string) (model.Category, error) {
	c, err := model.ParseCategory(s)
	if err != nil {
		return "", apperror.ValidationFailed("type", err.Error())
	}
	return c, nil
}

// optionalCategory is parseCategory that lets "" through as "no filter".
func optionalCategory(s string) (model.Category, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	return parseCategory(s)
}

// text trims value and checks it against max runes. Required fields may not
// be blank.
func text(field, value string, max int, required bool) (string, error) {
	value = strings.TrimSpace(value)
	if required && value == "" {
		return "", apperror.ValidationFailed(field, field+" is required")
	}
	if utf8.RuneCountInString(value) > max {
		return "", apperror.ValidationFailed(field, fmt.Sprintf("%s must be %d characters or less", field, max))
	}
	return value, nil
}

// page clamps pagination to sane values.
func page(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}
