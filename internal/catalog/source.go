package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// maxDocumentSize bounds the catalog download.
const maxDocumentSize = 10 * 1024 * 1024

// Fetcher loads the full component list from the remote source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Component, error)
}

// HTTPSource fetches the catalog CSV over HTTP(S).
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for the given document URL.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch downloads and parses the catalog document.
func (s *HTTPSource) Fetch(ctx context.Context) ([]model.Component, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	components, err := Parse(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, err
	}

	return components, nil
}
