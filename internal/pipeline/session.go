package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/observability"
)

// ErrSuperseded is returned when a newer selection replaced the one whose
// result just arrived. The result was dropped.
var ErrSuperseded = errors.New("selection superseded")

// Querier is the part of Service a Session needs.
type Querier interface {
	Years(ctx context.Context, item, element string) ([]int, error)
	Map(ctx context.Context, q Query) (domain.Snapshot, error)
	Area(ctx context.Context, q Query, area string) (AreaDetail, error)
}

// View is the state applied by the latest selection.
type View struct {
	Query    Query
	Years    []int
	Snapshot domain.Snapshot
}

// Session tracks one viewer's selection. Every selection change starts a
// recompute tagged with a new generation, and only the result of the latest
// generation is applied. Callbacks run on the goroutine that made the
// selection, after the session lock is released.
type Session struct {
	svc     Querier
	logger  *slog.Logger
	metrics *observability.Metrics

	mu         sync.Mutex
	query      Query
	view       View
	generation uint64
	areaGen    uint64

	onDataLoaded    func(View)
	onYearChange    func(int)
	onCountrySelect func(AreaDetail)
}

// NewSession starts a session at initial. Nothing is loaded until the first
// selection or Refresh.
func NewSession(svc Querier, initial Query, logger *slog.Logger, metrics *observability.Metrics) *Session {
	return &Session{
		svc:     svc,
		logger:  logger,
		metrics: metrics,
		query:   initial,
	}
}

// OnDataLoaded registers the callback fired when a new view is applied.
func (s *Session) OnDataLoaded(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDataLoaded = fn
}

// OnYearChange registers the callback fired when the applied year differs
// from the previous one, including when an unavailable year is replaced.
func (s *Session) OnYearChange(fn func(int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onYearChange = fn
}

// OnCountrySelect registers the callback fired when a country selection resolves.
func (s *Session) OnCountrySelect(fn func(AreaDetail)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCountrySelect = fn
}

// Current returns the last applied view.
func (s *Session) Current() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Selection returns the selection as last requested, which may not be applied yet.
func (s *Session) Selection() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

func (s *Session) SelectFood(ctx context.Context, item string) error {
	return s.update(ctx, func(q *Query) { q.Item = item })
}

func (s *Session) SelectElement(ctx context.Context, element string) error {
	return s.update(ctx, func(q *Query) { q.Element = element })
}

func (s *Session) SelectYear(ctx context.Context, year int) error {
	return s.update(ctx, func(q *Query) { q.Year = year })
}

func (s *Session) SelectScale(ctx context.Context, scale domain.Scale) error {
	return s.update(ctx, func(q *Query) { q.Scale = scale })
}

// Refresh recomputes the current selection.
func (s *Session) Refresh(ctx context.Context) error {
	return s.update(ctx, func(*Query) {})
}

// SelectCountry resolves the detail for area under the applied selection.
// A later SelectCountry supersedes an earlier one still in flight.
func (s *Session) SelectCountry(ctx context.Context, area string) error {
	s.mu.Lock()
	s.areaGen++
	gen := s.areaGen
	q := s.view.Query
	s.mu.Unlock()

	detail, err := s.svc.Area(ctx, q, area)

	s.mu.Lock()
	if gen != s.areaGen {
		s.mu.Unlock()
		s.dropStale("country", gen)
		return ErrSuperseded
	}
	cb := s.onCountrySelect
	s.mu.Unlock()

	if err != nil {
		return err
	}
	if cb != nil {
		cb(detail)
	}
	return nil
}

func (s *Session) update(ctx context.Context, change func(*Query)) error {
	s.mu.Lock()
	change(&s.query)
	s.generation++
	gen := s.generation
	q := s.query
	s.mu.Unlock()

	view, err := s.compute(ctx, q)

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.dropStale("view", gen)
		return ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevYear := s.view.Query.Year
	s.view = view
	s.query.Year = view.Query.Year
	onData, onYear := s.onDataLoaded, s.onYearChange
	s.mu.Unlock()

	if onYear != nil && view.Query.Year != prevYear {
		onYear(view.Query.Year)
	}
	if onData != nil {
		onData(view)
	}
	return nil
}

// compute loads the years for the selection, falls back to the first
// available year when the selected one is missing, and builds the snapshot.
func (s *Session) compute(ctx context.Context, q Query) (View, error) {
	years, err := s.svc.Years(ctx, q.Item, q.Element)
	if err != nil {
		return View{}, err
	}
	if len(years) > 0 && !slices.Contains(years, q.Year) {
		s.logger.Debug("selected year unavailable, using first available",
			"item", q.Item, "year", q.Year, "fallback", years[0])
		q.Year = years[0]
	}

	snap, err := s.svc.Map(ctx, q)
	if err != nil {
		return View{}, err
	}
	q.Element, q.Year, q.Scale = snap.Element, snap.Year, snap.Scale
	return View{Query: q, Years: years, Snapshot: snap}, nil
}

func (s *Session) dropStale(kind string, gen uint64) {
	s.metrics.StaleResults.Inc()
	s.logger.Debug("dropping stale result", "kind", kind, "generation", gen)
}
