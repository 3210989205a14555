package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// MaxQueryLength bounds search queries, in bytes.
const MaxQueryLength = 256

// ValidateQuery validates a component search query.
func ValidateQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return errors.New("query cannot be empty")
	}
	if len(q) > MaxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(q) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateCategory parses a category name or label.
func ValidateCategory(s string) (model.Category, error) {
	c, ok := model.ParseCategory(s)
	if !ok {
		return "", errors.New("category must be one of mobile, web, icon")
	}
	return c, nil
}
