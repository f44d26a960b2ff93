package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrSourceNotConfigured reports a query against a source with no URL.
	ErrSourceNotConfigured = errors.New("source not configured")

	// ErrUpstream wraps failures to fetch or decode a remote source.
	ErrUpstream = errors.New("upstream source unavailable")
)

// Food tree sources accepted by FoodTree.
const (
	SourceCarbon = "carbon"
	SourceWater  = "water"
)

// RecordSource yields the merged dataset, loading it on first use.
type RecordSource interface {
	Load(ctx context.Context) ([]domain.Record, error)
	Loaded() bool
	Reset()
}

// FoodSource yields one footprint tree.
type FoodSource interface {
	Load(ctx context.Context) (*domain.FoodNode, error)
}

// Query selects one map snapshot. Zero fields take the service defaults.
type Query struct {
	Item    string
	Element string
	Year    int
	Scale   domain.Scale
}

func (q Query) cacheKey() string {
	return fmt.Sprintf("%s|%s|%d|%s", q.Item, q.Element, q.Year, q.Scale)
}

// AreaDetail is the styled entry for one area plus its surface comparison.
// Comparison is only set for values measured in hectares.
type AreaDetail struct {
	Entry      domain.StyledRecord    `json:"entry"`
	Comparison *domain.AreaComparison `json:"comparison,omitempty"`
}

// Options holds the service defaults.
type Options struct {
	DefaultElement string
	DefaultYear    int
	CacheSize      int
}

// Service answers map, ranking, and food queries over lazily loaded sources.
type Service struct {
	records    RecordSource
	carbon     FoodSource
	water      FoodSource
	normalizer domain.Normalizer
	snapshots  *lru.Cache[string, domain.Snapshot]
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New creates a Service. carbon and water may be nil, in which case food
// queries fail with ErrSourceNotConfigured.
func New(records RecordSource, carbon, water FoodSource, normalizer domain.Normalizer, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	cache, err := lru.New[string, domain.Snapshot](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create snapshot cache: %w", err)
	}
	return &Service{
		records:    records,
		carbon:     carbon,
		water:      water,
		normalizer: normalizer,
		snapshots:  cache,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}, nil
}

// CheckReadiness returns nil once the dataset has been loaded.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.records.Loaded() {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Warm loads the dataset so the first request does not pay for the fetch.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

// DefaultElement is the element used when a query leaves it empty.
func (s *Service) DefaultElement() string {
	return s.opts.DefaultElement
}

// Invalidate drops every cached snapshot.
func (s *Service) Invalidate() {
	s.snapshots.Purge()
}

// Reload discards the loaded dataset and its snapshots and fetches it again.
// On failure the service is left unloaded and the next query retries.
func (s *Service) Reload(ctx context.Context) error {
	s.records.Reset()
	s.Invalidate()
	if err := s.Warm(ctx); err != nil {
		return err
	}
	s.logger.Info("dataset reloaded")
	return nil
}

// Filtered returns the records matching element and item, with the
// typology fallback for item.
func (s *Service) Filtered(ctx context.Context, item, element string) ([]domain.Record, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Select(records, item, element), nil
}

// Years lists the years available for item and element.
func (s *Service) Years(ctx context.Context, item, element string) ([]int, error) {
	if element == "" {
		element = s.opts.DefaultElement
	}
	filtered, err := s.Filtered(ctx, item, element)
	if err != nil {
		return nil, err
	}
	return domain.AvailableYears(filtered), nil
}

// Map returns the styled snapshot for q. An item or element with no rows is
// not an error; the snapshot has NoData set.
func (s *Service) Map(ctx context.Context, q Query) (domain.Snapshot, error) {
	q, err := s.resolve(q)
	if err != nil {
		return domain.Snapshot{}, err
	}

	key := q.cacheKey()
	if snap, ok := s.snapshots.Get(key); ok {
		s.metrics.SnapshotCache.WithLabelValues("hit").Inc()
		return snap, nil
	}
	s.metrics.SnapshotCache.WithLabelValues("miss").Inc()

	filtered, err := s.Filtered(ctx, q.Item, q.Element)
	if err != nil {
		return domain.Snapshot{}, err
	}

	start := time.Now()
	n := s.normalizer
	n.Mapping = q.Scale.Mapping()
	snap := n.Normalize(filtered, q.Year)
	snap.Item, snap.Element, snap.Scale = q.Item, q.Element, q.Scale
	snap.Years = domain.AvailableYears(filtered)
	s.metrics.SnapshotDuration.Observe(time.Since(start).Seconds())
	s.metrics.SnapshotsComputed.Inc()

	if snap.NoData {
		s.logger.Debug("snapshot has no data", "item", q.Item, "element", q.Element, "year", q.Year)
	}

	s.snapshots.Add(key, snap)
	return snap, nil
}

// Area returns the styled entry for one area. The area is matched by its
// lookup key, so case and surrounding spaces do not matter.
func (s *Service) Area(ctx context.Context, q Query, area string) (AreaDetail, error) {
	snap, err := s.Map(ctx, q)
	if err != nil {
		return AreaDetail{}, err
	}

	entry, ok := snap.Lookup(s.key(area))
	if !ok {
		return AreaDetail{}, fmt.Errorf("%w: %q", domain.ErrUnknownArea, area)
	}

	detail := AreaDetail{Entry: entry}
	if strings.EqualFold(entry.Unit, "ha") {
		c := domain.CompareArea(entry.SelectedValue)
		detail.Comparison = &c
	}
	return detail, nil
}

// Ranking returns one frame per available year with the top n areas.
func (s *Service) Ranking(ctx context.Context, item, element string, n int) ([]domain.Frame, error) {
	if item == "" {
		return nil, fmt.Errorf("%w: item is required", domain.ErrInvalidQuery)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", domain.ErrInvalidQuery, n)
	}
	if element == "" {
		element = s.opts.DefaultElement
	}

	filtered, err := s.Filtered(ctx, item, element)
	if err != nil {
		return nil, err
	}
	return domain.Rank(filtered, domain.AvailableYears(filtered), n), nil
}

// Foods joins the carbon and water trees into the comparable food list.
func (s *Service) Foods(ctx context.Context) ([]domain.Food, error) {
	carbon, water, err := s.foodTrees(ctx)
	if err != nil {
		return nil, err
	}
	return domain.BuildFoodIndex(carbon, water), nil
}

// FoodTree returns the aggregated subtree of source at path. The path is
// relative to the root; an empty path returns the whole tree.
func (s *Service) FoodTree(ctx context.Context, source string, path []string) (*domain.FoodNode, error) {
	var src FoodSource
	switch source {
	case SourceCarbon, "":
		src = s.carbon
	case SourceWater:
		src = s.water
	default:
		return nil, fmt.Errorf("%w: unknown food source %q", domain.ErrInvalidQuery, source)
	}
	if src == nil {
		return nil, ErrSourceNotConfigured
	}

	tree, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	full := append([]string{domain.RootName}, path...)
	node := domain.NodeAtPath(domain.Aggregate(tree), full)
	if node == nil {
		return nil, fmt.Errorf("%w: path %q", domain.ErrUnknownFood, strings.Join(path, "/"))
	}
	return node, nil
}

// CompareFoods builds the side-by-side carbon and water series for names.
func (s *Service) CompareFoods(ctx context.Context, names []string) (domain.FoodComparison, error) {
	foods, err := s.Foods(ctx)
	if err != nil {
		return domain.FoodComparison{}, err
	}
	return domain.CompareFoods(foods, names)
}

func (s *Service) load(ctx context.Context) ([]domain.Record, error) {
	records, err := s.records.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return records, nil
}

func (s *Service) foodTrees(ctx context.Context) (carbon, water *domain.FoodNode, err error) {
	if s.carbon == nil || s.water == nil {
		return nil, nil, ErrSourceNotConfigured
	}
	if carbon, err = s.carbon.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if water, err = s.water.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return carbon, water, nil
}

// resolve applies defaults and validates q.
func (s *Service) resolve(q Query) (Query, error) {
	if q.Item == "" {
		return q, fmt.Errorf("%w: item is required", domain.ErrInvalidQuery)
	}
	if q.Element == "" {
		q.Element = s.opts.DefaultElement
	}
	if q.Year == 0 {
		q.Year = s.opts.DefaultYear
	}
	if q.Year < domain.MinYear || q.Year > domain.MaxYear {
		return q, fmt.Errorf("%w: year %d outside [%d, %d]", domain.ErrInvalidQuery, q.Year, domain.MinYear, domain.MaxYear)
	}
	if q.Scale == "" {
		q.Scale = domain.ScaleLog
	}
	return q, nil
}

func (s *Service) key(area string) string {
	if s.normalizer.Key != nil {
		return s.normalizer.Key(area)
	}
	return domain.AreaKey(area)
}
