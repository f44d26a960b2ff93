package dataset

import (
	"context"
	"log/slog"
	"time"

	"github.com/colocaviz/cropmap-service/internal/observability"
)

// Fetcher retrieves the raw bytes of one remote source.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// BodyStore persists fetched bodies keyed by source.
type BodyStore interface {
	Get(ctx context.Context, key string) (body []byte, fetchedAt time.Time, ok bool, err error)
	Put(ctx context.Context, key string, body []byte, fetchedAt time.Time) error
}

// CachedFetcher serves a stored body while it is younger than ttl and
// otherwise fetches from inner and stores the result. Store failures are
// logged and never fail the fetch.
type CachedFetcher struct {
	inner   Fetcher
	store   BodyStore
	key     string
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedFetcher creates a persistent-cache decorator around a fetcher.
func NewCachedFetcher(inner Fetcher, store BodyStore, key string, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		store:   store,
		key:     key,
		ttl:     ttl,
		logger:  logger,
		metrics: metrics,
	}
}

func (c *CachedFetcher) Fetch(ctx context.Context) ([]byte, error) {
	body, fetchedAt, ok, err := c.store.Get(ctx, c.key)
	switch {
	case err != nil:
		c.metrics.BodyCache.WithLabelValues("error").Inc()
		c.logger.Warn("body cache read failed", "key", c.key, "error", err)
	case !ok:
		c.metrics.BodyCache.WithLabelValues("miss").Inc()
	case clock.Since(fetchedAt) < c.ttl:
		c.metrics.BodyCache.WithLabelValues("hit").Inc()
		return body, nil
	default:
		c.metrics.BodyCache.WithLabelValues("stale").Inc()
	}

	body, err = c.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Put(ctx, c.key, body, clock.Now()); err != nil {
		c.logger.Warn("body cache write failed", "key", c.key, "error", err)
	}
	return body, nil
}
