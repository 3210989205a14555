// Package catalog fetches and memoizes the design-system component catalog.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// Column names of the catalog document header.
const (
	ColumnComponent = "Component"
	ColumnFile      = "File"
	ColumnTags      = "Tags"
	ColumnLink      = "Link"
	ColumnImage     = "Image"
)

// ErrMissingColumn is returned when a required header column is absent.
var ErrMissingColumn = errors.New("catalog: missing required column")

var imageFormula = regexp.MustCompile(`(?i)^=\s*IMAGE\(\s*"([^"]*)"`)

// Normalize lower-cases s, collapses whitespace runs to one space and trims it.
// Queries and tags go through the same function so they compare exactly.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// UnwrapImage turns a =IMAGE("url") spreadsheet formula into the bare URL.
// Any other value is returned trimmed.
func UnwrapImage(v string) string {
	v = strings.TrimSpace(v)
	if m := imageFormula.FindStringSubmatch(v); m != nil {
		return strings.TrimSpace(m[1])
	}
	return v
}

// SplitTags splits a comma separated tag cell into normalized, non-empty tags.
func SplitTags(cell string) []string {
	parts := strings.Split(cell, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := Normalize(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Parse reads a CSV catalog document.
func Parse(r io.Reader) ([]model.Component, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("catalog: empty document: %w", err)
		}
		return nil, fmt.Errorf("catalog: failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		index[name] = i
	}
	for _, required := range []string{ColumnComponent, ColumnFile, ColumnTags, ColumnLink} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	field := func(row []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var components []model.Component
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog: failed to read row: %w", err)
		}

		name := field(row, ColumnComponent)
		if name == "" {
			continue
		}

		components = append(components, model.Component{
			Name:  name,
			File:  field(row, ColumnFile),
			Link:  field(row, ColumnLink),
			Tags:  SplitTags(field(row, ColumnTags)),
			Image: UnwrapImage(field(row, ColumnImage)),
		})
	}

	return components, nil
}
