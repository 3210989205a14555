// Package model defines data structures for the design-system assistant.
package model

import (
	"strings"
	"time"
)

// Category classifies a component by the file that contains it.
type Category string

const (
	CategoryMobile Category = "mobile"
	CategoryWeb    Category = "web"
	CategoryIcon   Category = "icon"
)

// Categories lists every category in menu order.
var Categories = []Category{CategoryMobile, CategoryWeb, CategoryIcon}

// Button labels offered on the category keyboard.
const (
	LabelMobile = "Mobile component"
	LabelWeb    = "Web component"
	LabelIcon   = "Icon or placeholder"
)

// Label returns the keyboard label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryMobile:
		return LabelMobile
	case CategoryWeb:
		return LabelWeb
	case CategoryIcon:
		return LabelIcon
	default:
		return string(c)
	}
}

// ParseCategory accepts a category name or its keyboard label, case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if s == string(c) || s == strings.ToLower(c.Label()) {
			return c, true
		}
	}
	return "", false
}

// Component is one catalog entry.
type Component struct {
	Name  string   `json:"name"`
	File  string   `json:"file"`
	Link  string   `json:"link"`
	Tags  []string `json:"tags"`
	Image string   `json:"image,omitempty"`
}

// Snapshot is an immutable view of the catalog at one point in time.
type Snapshot struct {
	Components []Component `json:"components"`
	FetchedAt  time.Time   `json:"fetched_at"`
}

// Empty reports whether the snapshot holds no components.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.Components) == 0
}
