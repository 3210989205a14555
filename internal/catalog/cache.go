package catalog

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

const (
	// DefaultTTL is how long a snapshot is served without refetching.
	DefaultTTL = 5 * time.Minute

	// DefaultFetchTimeout bounds one fetch round trip.
	DefaultFetchTimeout = 15 * time.Second

	fetchKey = "catalog"
)

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the freshness interval.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// Cache memoizes the catalog for a fixed freshness interval.
type Cache struct {
	source       Fetcher
	logger       *logger.Logger
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *model.Snapshot
}

// NewCache creates a cache over the given source.
func NewCache(source Fetcher, log *logger.Logger, opts ...Option) *Cache {
	c := &Cache{
		source:       source,
		logger:       log,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current catalog, refreshing it when stale.
//
// A failed refresh keeps the previous snapshot and its timestamp, so the next
// call retries at once. When no fetch has ever succeeded the result is an empty
// snapshot. The returned value must not be modified.
func (c *Cache) Snapshot(ctx context.Context) *model.Snapshot {
	if snap, ok := c.fresh(); ok {
		return snap
	}

	v, _, _ := c.group.Do(fetchKey, func() (interface{}, error) {
		// Another caller may have refreshed while we waited for the group.
		if snap, ok := c.fresh(); ok {
			return snap, nil
		}
		return c.refresh(ctx), nil
	})

	return v.(*model.Snapshot)
}

// Current returns the held snapshot without fetching. It is nil until the
// first successful fetch.
func (c *Cache) Current() *model.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) fresh() (*model.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot != nil && c.now().Sub(c.snapshot.FetchedAt) < c.ttl {
		return c.snapshot, true
	}
	return nil, false
}

func (c *Cache) refresh(ctx context.Context) *model.Snapshot {
	// Callers share this fetch; one caller going away must not cancel it for the rest.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	fetchCtx, span := otel.Tracer("catalog").Start(fetchCtx, "catalog.fetch")
	defer span.End()

	started := time.Now()
	components, err := c.source.Fetch(fetchCtx)
	elapsed := time.Since(started).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		metrics.RecordCatalogFetch("error", elapsed, 0)

		c.mu.RLock()
		prev := c.snapshot
		c.mu.RUnlock()

		c.logger.Warn("catalog fetch failed, serving previous snapshot",
			zap.Error(err),
			zap.Bool("has_previous", prev != nil),
		)
		if prev == nil {
			return &model.Snapshot{}
		}
		return prev
	}

	snap := &model.Snapshot{
		Components: components,
		FetchedAt:  c.now(),
	}
	span.SetAttributes(attribute.Int("catalog.components", len(components)))
	metrics.RecordCatalogFetch("success", elapsed, len(components))

	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.logger.Info("catalog refreshed", zap.Int("components", len(components)))

	return snap
}
