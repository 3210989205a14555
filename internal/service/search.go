package service

import (
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/catalog"
	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

// Default file buckets used to classify components.
var (
	DefaultMobileFiles = []string{"App Components"}
	DefaultIconFiles   = []string{"Icons", "Logos", "Placeholders"}
)

// SnapshotProvider returns the current catalog snapshot.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) *model.Snapshot
}

// Classifier maps a component to its category by containing file.
type Classifier struct {
	mobile map[string]struct{}
	icon   map[string]struct{}
}

// NewClassifier builds a classifier from the mobile and icon file buckets.
// Every other file is classified as web.
func NewClassifier(mobileFiles, iconFiles []string) *Classifier {
	return &Classifier{
		mobile: fileSet(mobileFiles),
		icon:   fileSet(iconFiles),
	}
}

func fileSet(files []string) map[string]struct{} {
	set := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

// Classify returns the single category of c.
func (cl *Classifier) Classify(c model.Component) model.Category {
	file := strings.TrimSpace(c.File)
	if _, ok := cl.mobile[file]; ok {
		return model.CategoryMobile
	}
	if _, ok := cl.icon[file]; ok {
		return model.CategoryIcon
	}
	return model.CategoryWeb
}

// Filter returns the components of snap in category whose tags contain the
// normalized query exactly, sorted by name case-insensitively.
func Filter(snap *model.Snapshot, query string, category model.Category, cl *Classifier) []model.Component {
	if snap.Empty() {
		return nil
	}

	q := catalog.Normalize(query)
	if q == "" {
		return nil
	}

	var out []model.Component
	for _, c := range snap.Components {
		if !hasTag(c, q) || cl.Classify(c) != category {
			continue
		}
		out = append(out, c)
	}

	slices.SortStableFunc(out, func(a, b model.Component) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	return out
}

func hasTag(c model.Component, q string) bool {
	for _, t := range c.Tags {
		if catalog.Normalize(t) == q {
			return true
		}
	}
	return false
}

// SearchService answers component searches against the cached catalog.
type SearchService struct {
	catalog    SnapshotProvider
	classifier *Classifier
	logger     *logger.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(catalog SnapshotProvider, classifier *Classifier, log *logger.Logger) *SearchService {
	return &SearchService{
		catalog:    catalog,
		classifier: classifier,
		logger:     log,
	}
}

// Search returns the components matching query within category.
func (s *SearchService) Search(ctx context.Context, query string, category model.Category) []model.Component {
	snap := s.catalog.Snapshot(ctx)
	results := Filter(snap, query, category, s.classifier)

	metrics.RecordSearch(string(category), len(results))
	s.logger.Debug("search",
		zap.String("query", catalog.Normalize(query)),
		zap.String("category", string(category)),
		zap.Int("catalog_size", len(snap.Components)),
		zap.Int("results", len(results)),
	)

	return results
}

// Classifier returns the classifier used by the service.
func (s *SearchService) Classifier() *Classifier {
	return s.classifier
}
