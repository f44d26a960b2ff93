package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultRankingSize = 10

// API is the query surface served under /api/v1.
type API interface {
	sharedobs.ReadinessChecker
	DefaultElement() string
	Years(ctx context.Context, item, element string) ([]int, error)
	Map(ctx context.Context, q pipeline.Query) (domain.Snapshot, error)
	Area(ctx context.Context, q pipeline.Query, area string) (pipeline.AreaDetail, error)
	Ranking(ctx context.Context, item, element string, n int) ([]domain.Frame, error)
	Foods(ctx context.Context) ([]domain.Food, error)
	FoodTree(ctx context.Context, source string, path []string) (*domain.FoodNode, error)
	CompareFoods(ctx context.Context, names []string) (domain.FoodComparison, error)
	Reload(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and the JSON query API.
type Server struct {
	httpServer *http.Server
	api        API
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// the /api/v1 routes.
func NewServer(addr string, api API, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// The first request may wait on the dataset download.
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		api:    api,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(api))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/years", s.handleYears)
	mux.HandleFunc("GET /api/v1/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/areas/{area}", s.handleArea)
	mux.HandleFunc("GET /api/v1/ranking", s.handleRanking)
	mux.HandleFunc("GET /api/v1/foods", s.handleFoods)
	mux.HandleFunc("GET /api/v1/foods/tree", s.handleFoodTree)
	mux.HandleFunc("GET /api/v1/foods/compare", s.handleCompareFoods)
	mux.HandleFunc("POST /api/v1/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleYears(w http.ResponseWriter, r *http.Request) {
	item, element := r.URL.Query().Get("item"), r.URL.Query().Get("element")
	if item == "" {
		s.writeError(w, r, invalid("item is required"))
		return
	}
	if element == "" {
		element = s.api.DefaultElement()
	}

	years, err := s.api.Years(r.Context(), item, element)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"item":    item,
		"element": element,
		"years":   years,
	})
}

func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.api.Map(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handleArea(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	detail, err := s.api.Area(r.Context(), q, r.PathValue("area"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	n := defaultRankingSize
	if raw := params.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, invalid("n must be an integer"))
			return
		}
		n = v
	}

	frames, err := s.api.Ranking(r.Context(), params.Get("item"), params.Get("element"), n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"frames": frames})
}

func (s *Server) handleFoods(w http.ResponseWriter, r *http.Request) {
	foods, err := s.api.Foods(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"foods": foods})
}

func (s *Server) handleFoodTree(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	node, err := s.api.FoodTree(r.Context(), params.Get("source"), splitPath(params.Get("path")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, node)
}

func (s *Server) handleCompareFoods(w http.ResponseWriter, r *http.Request) {
	cmpr, err := s.api.CompareFoods(r.Context(), r.URL.Query()["name"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, cmpr)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Reload(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

// parseQuery reads item, element, year, and scale. Missing element and year
// are left zero for the service to default.
func parseQuery(r *http.Request) (pipeline.Query, error) {
	params := r.URL.Query()
	q := pipeline.Query{
		Item:    params.Get("item"),
		Element: params.Get("element"),
	}

	if raw := params.Get("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return q, invalid("year must be an integer")
		}
		q.Year = year
	}

	scale, err := domain.ParseScale(params.Get("scale"))
	if err != nil {
		return q, err
	}
	q.Scale = scale
	return q, nil
}

// splitPath turns "Meat/Beef" into its segments. A leading "root" is dropped.
func splitPath(raw string) []string {
	var parts []string
	for p := range strings.SplitSeq(raw, "/") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 && parts[0] == domain.RootName {
		parts = parts[1:]
	}
	return parts
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidQuery, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownArea), errors.Is(err, domain.ErrUnknownFood):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrSourceNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, pipeline.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
