package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/capitalize-ai/ds-assistant/internal/middleware"
	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/internal/service"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

// Searcher finds components for a query within a category.
type Searcher interface {
	Search(ctx context.Context, query string, category model.Category) []model.Component
}

// CatalogStats summarizes the catalog snapshot.
type CatalogStats struct {
	Count      int                    `json:"count"`
	FetchedAt  *time.Time             `json:"fetched_at,omitempty"`
	Categories map[model.Category]int `json:"categories"`
}

// SearchResponse is the body of a component search.
type SearchResponse struct {
	Query      string            `json:"query"`
	Category   model.Category    `json:"category"`
	Total      int               `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
	Components []model.Component `json:"components"`
}

// CatalogHandler serves read-only catalog endpoints.
type CatalogHandler struct {
	catalog    service.SnapshotProvider
	classifier *service.Classifier
	search     Searcher
	logger     *logger.Logger
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog service.SnapshotProvider, classifier *service.Classifier, search Searcher, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog:    catalog,
		classifier: classifier,
		search:     search,
		logger:     log,
	}
}

// Stats handles GET /api/v1/catalog
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	snap := h.catalog.Snapshot(r.Context())

	stats := CatalogStats{
		Count:      len(snap.Components),
		Categories: make(map[model.Category]int, len(model.Categories)),
	}
	for _, c := range model.Categories {
		stats.Categories[c] = 0
	}
	for _, c := range snap.Components {
		stats.Categories[h.classifier.Classify(c)]++
	}
	if !snap.FetchedAt.IsZero() {
		fetchedAt := snap.FetchedAt
		stats.FetchedAt = &fetchedAt
	}

	writeJSON(w, http.StatusOK, stats)
}

// Search handles GET /api/v1/components?q=&category=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	q := query.Get("q")
	if err := middleware.ValidateQuery(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := middleware.ValidateCategory(query.Get("category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 20
	offset := 0

	if l := query.Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	if o := query.Get("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	results := h.search.Search(r.Context(), q, category)

	page := []model.Component{}
	if offset < len(results) {
		page = results[offset:min(offset+limit, len(results))]
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:      q,
		Category:   category,
		Total:      len(results),
		Limit:      limit,
		Offset:     offset,
		Components: page,
	})
}
