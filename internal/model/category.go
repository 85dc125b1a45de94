package model

import (
	"fmt"
	"strings"
)

// Category is the two-valued domain tag that says whether a description is
// about a guitar or about a guitar-manufacturing company.
//
// TYPED STRINGS:
// A named string type gives us compile-time separation from arbitrary strings
// while still serialising to plain JSON ("guitar") and storing as TEXT in SQLite.
type Category string

const (
	CategoryGuitar  Category = "guitar"
	CategoryCompany Category = "company"
)

// Categories lists every valid category, in display order.
var Categories = []Category{CategoryGuitar, CategoryCompany}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c == CategoryGuitar || c == CategoryCompany
}

func (c Category) String() string { return string(c) }

// ParseCategory normalises and validates a category coming from the outside
// world (JSON body, URL, query string).
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("type must be %q or %q, got %q", CategoryGuitar, CategoryCompany, s)
	}
	return c, nil
}

// Visibility controls whether an example participates in other users'
// learning context.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}
