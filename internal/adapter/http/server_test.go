package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/colocaviz/cropmap-service/internal/adapter/http"
	"github.com/colocaviz/cropmap-service/internal/domain"
	"github.com/colocaviz/cropmap-service/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAPI records the last query and returns canned results or err.
type mockAPI struct {
	readyErr error
	err      error

	lastQuery pipeline.Query
	lastArea  string
	lastN     int
	lastPath  []string
	lastNames []string
	reloads   int
}

func (m *mockAPI) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockAPI) DefaultElement() string { return "area harvested" }

func (m *mockAPI) Years(_ context.Context, _, element string) ([]int, error) {
	m.lastQuery.Element = element
	return []int{2019, 2020}, m.err
}

func (m *mockAPI) Map(_ context.Context, q pipeline.Query) (domain.Snapshot, error) {
	m.lastQuery = q
	if m.err != nil {
		return domain.Snapshot{}, m.err
	}
	return domain.Snapshot{
		Item: q.Item, Year: 2019, Scale: q.Scale,
		Entries: []domain.StyledRecord{{Key: "chad", SelectedValue: 120, FillColor: "#cc3232"}},
	}, nil
}

func (m *mockAPI) Area(_ context.Context, q pipeline.Query, area string) (pipeline.AreaDetail, error) {
	m.lastQuery, m.lastArea = q, area
	if m.err != nil {
		return pipeline.AreaDetail{}, m.err
	}
	c := domain.CompareArea(120)
	return pipeline.AreaDetail{Entry: domain.StyledRecord{Key: domain.AreaKey(area)}, Comparison: &c}, nil
}

func (m *mockAPI) Ranking(_ context.Context, _, _ string, n int) ([]domain.Frame, error) {
	m.lastN = n
	return []domain.Frame{{Year: 2019, Entries: []domain.Ranked{{Area: "Chad", Value: 120}}}}, m.err
}

func (m *mockAPI) Foods(_ context.Context) ([]domain.Food, error) {
	return []domain.Food{{Name: "Beef", Carbon: 60}}, m.err
}

func (m *mockAPI) FoodTree(_ context.Context, _ string, path []string) (*domain.FoodNode, error) {
	m.lastPath = path
	if m.err != nil {
		return nil, m.err
	}
	return &domain.FoodNode{Name: "Meat", Value: 66}, nil
}

func (m *mockAPI) CompareFoods(_ context.Context, names []string) (domain.FoodComparison, error) {
	m.lastNames = names
	return domain.FoodComparison{Labels: names}, m.err
}

func (m *mockAPI) Reload(_ context.Context) error {
	m.reloads++
	return m.err
}

func newTestServer(api *mockAPI) *httpadapter.Server {
	return httpadapter.NewServer(":0", api, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{readyErr: fmt.Errorf("dataset has not been loaded yet")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "dataset has not been loaded yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestYears(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/api/v1/years?item=Rice")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Item    string `json:"item"`
		Element string `json:"element"`
		Years   []int  `json:"years"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Rice", body.Item)
	assert.Equal(t, "area harvested", body.Element)
	assert.Equal(t, []int{2019, 2020}, body.Years)
}

func TestYears_EchoesRequestedElement(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/years?item=Rice&element=production")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "production", api.lastQuery.Element)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "production", body["element"])
}

func TestYears_MissingItem(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/api/v1/years")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMap_ParsesQuery(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/map?item=Rice&element=production&year=2019&scale=linear")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, pipeline.Query{Item: "Rice", Element: "production", Year: 2019, Scale: domain.ScaleLinear}, api.lastQuery)

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "chad", snap.Entries[0].Key)
	assert.InDelta(t, 120.0, snap.Entries[0].SelectedValue, 0)
}

func TestMap_DefaultsScaleToLog(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/map?item=Rice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.ScaleLog, api.lastQuery.Scale)
	assert.Zero(t, api.lastQuery.Year)
}

func TestMap_BadParams(t *testing.T) {
	srv := newTestServer(&mockAPI{})

	for _, target := range []string{
		"/api/v1/map?item=Rice&year=twenty",
		"/api/v1/map?item=Rice&scale=cubic",
	} {
		rec := get(t, srv, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestArea(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/areas/Chad?item=Rice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chad", api.lastArea)

	var detail pipeline.AreaDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	require.NotNil(t, detail.Comparison)
	assert.Equal(t, "Paris", detail.Comparison.Reference)
}

func TestRanking(t *testing.T) {
	api := &mockAPI{}
	srv := newTestServer(api)

	rec := get(t, srv, "/api/v1/ranking?item=Rice")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, api.lastN)

	rec = get(t, srv, "/api/v1/ranking?item=Rice&n=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, api.lastN)

	rec = get(t, srv, "/api/v1/ranking?item=Rice&n=three")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFoodTree_SplitsPath(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/foods/tree?source=carbon&path=root/Meat//Beef")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Meat", "Beef"}, api.lastPath)
}

func TestCompareFoods_RepeatedNames(t *testing.T) {
	api := &mockAPI{}
	rec := get(t, newTestServer(api), "/api/v1/foods/compare?name=Beef&name=Tofu")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Beef", "Tofu"}, api.lastNames)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		target string
		status int
	}{
		{"unknown area", fmt.Errorf("%w: %q", domain.ErrUnknownArea, "Atlantis"), "/api/v1/areas/Atlantis?item=Rice", http.StatusNotFound},
		{"unknown food", domain.ErrUnknownFood, "/api/v1/foods/tree?path=Fish", http.StatusNotFound},
		{"invalid query", domain.ErrInvalidQuery, "/api/v1/foods/compare?name=Beef", http.StatusBadRequest},
		{"foods not configured", pipeline.ErrSourceNotConfigured, "/api/v1/foods", http.StatusServiceUnavailable},
		{"upstream", fmt.Errorf("%w: status 503", pipeline.ErrUpstream), "/api/v1/map?item=Rice", http.StatusBadGateway},
		{"unexpected", errors.New("boom"), "/api/v1/ranking?item=Rice", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, newTestServer(&mockAPI{err: tc.err}), tc.target)
			assert.Equal(t, tc.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.err.Error(), body["error"])
		})
	}
}

func TestReload(t *testing.T) {
	api := &mockAPI{}
	rec := httptest.NewRecorder()
	newTestServer(api).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, api.reloads)
	assert.JSONEq(t, `{"status":"reloaded"}`, rec.Body.String())
}

func TestReload_UpstreamFailure(t *testing.T) {
	api := &mockAPI{err: fmt.Errorf("%w: status 503", pipeline.ErrUpstream)}
	rec := httptest.NewRecorder()
	newTestServer(api).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reload", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReload_RequiresPost(t *testing.T) {
	rec := get(t, newTestServer(&mockAPI{}), "/api/v1/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
