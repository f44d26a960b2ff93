package dataset

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/observability"
	"golang.org/x/sync/singleflight"
)

// Loader fetches and decodes one source at most once per process. The first
// successful result is cached; callers arriving while a fetch is in flight
// share it. Failures are returned to every waiting caller and not cached.
type Loader[T any] struct {
	name    string
	fetcher Fetcher
	decode  func([]byte) (T, error)
	logger  *slog.Logger
	metrics *observability.Metrics

	group singleflight.Group

	mu       sync.RWMutex
	value    T
	loaded   bool
	loadedAt time.Time
}

// NewLoader creates a loader for the named source.
func NewLoader[T any](name string, f Fetcher, decode func([]byte) (T, error), logger *slog.Logger, metrics *observability.Metrics) *Loader[T] {
	return &Loader[T]{
		name:    name,
		fetcher: f,
		decode:  decode,
		logger:  logger,
		metrics: metrics,
	}
}

// NewRecordLoader loads the merged CSV dataset.
func NewRecordLoader(f Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Loader[[]domain.Record] {
	decode := func(body []byte) ([]domain.Record, error) {
		records, err := domain.ParseCSV(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		metrics.RecordsLoaded.Set(float64(len(records)))
		return records, nil
	}
	return NewLoader("dataset", f, decode, logger, metrics)
}

// NewFoodTreeLoader loads one footprint tree.
func NewFoodTreeLoader(name string, f Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Loader[*domain.FoodNode] {
	return NewLoader(name, f, domain.ParseFoodTree, logger, metrics)
}

// Name returns the source name used in logs and metrics.
func (l *Loader[T]) Name() string {
	return l.name
}

// Load returns the cached value, fetching it first if needed. If ctx ends
// while waiting, Load returns ctx.Err() and the shared fetch continues for
// the remaining callers.
func (l *Loader[T]) Load(ctx context.Context) (T, error) {
	if v, ok := l.cached(); ok {
		l.metrics.LoaderCache.WithLabelValues(l.name, "hit").Inc()
		return v, nil
	}

	ch := l.group.DoChan(l.name, func() (any, error) {
		if v, ok := l.cached(); ok {
			return v, nil
		}
		return l.fetch(context.WithoutCancel(ctx))
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			l.metrics.LoaderCache.WithLabelValues(l.name, "shared").Inc()
		} else {
			l.metrics.LoaderCache.WithLabelValues(l.name, "miss").Inc()
		}
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

// Loaded reports whether a value is cached.
func (l *Loader[T]) Loaded() bool {
	_, ok := l.cached()
	return ok
}

// LoadedAt returns when the cached value was stored, or the zero time.
func (l *Loader[T]) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}

// Reset drops the cached value so the next Load fetches again.
func (l *Loader[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	var zero T
	l.value, l.loaded, l.loadedAt = zero, false, time.Time{}
}

func (l *Loader[T]) cached() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.loaded
}

func (l *Loader[T]) fetch(ctx context.Context) (T, error) {
	var zero T

	body, err := l.fetcher.Fetch(ctx)
	if err != nil {
		l.logger.Error("source fetch failed", "source", l.name, "error", err)
		return zero, fmt.Errorf("load %s: %w", l.name, err)
	}

	v, err := l.decode(body)
	if err != nil {
		l.logger.Error("source decode failed", "source", l.name, "bytes", len(body), "error", err)
		return zero, fmt.Errorf("load %s: %w", l.name, err)
	}

	l.mu.Lock()
	l.value, l.loaded, l.loadedAt = v, true, clock.Now()
	l.mu.Unlock()

	l.logger.Info("source loaded", "source", l.name, "bytes", len(body))
	return v, nil
}
