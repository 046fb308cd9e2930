package inaturalist

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
	"github.com/robertsoden/ontario-environmental-data/internal/observability"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	requester := source.NewRequester("inaturalist",
		source.NewRateLimiter(0), logger,
		observability.NewMetricsForTesting(),
		source.RequesterOpts{BaseDelay: time.Millisecond})
	return &Client{requester: requester, baseURL: baseURL, logger: logger}
}

func results(n, offset int) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":            float64(offset + i),
			"species_guess": "Castor canadensis",
			"quality_grade": "research",
		}
	}
	return out
}

func pageHandler(t *testing.T, pages map[int]observationsPage) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		require.NoError(t, err)
		resp, ok := pages[page]
		require.True(t, ok, "unexpected page %d", page)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func TestObservations_SinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/observations", r.URL.Path)
		assert.Equal(t, "43.8", q.Get("swlat"))
		assert.Equal(t, "-80.2", q.Get("swlng"))
		assert.Equal(t, "research", q.Get("quality_grade"))
		assert.Equal(t, "true", q.Get("geo"))
		assert.Equal(t, "200", q.Get("per_page"))
		assert.Equal(t, "2024-01-01", q.Get("d1"))

		require.NoError(t, json.NewEncoder(w).Encode(observationsPage{
			TotalResults: 3, Page: 1, PerPage: 200, Results: results(3, 0),
		}))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	obs, err := c.Observations(context.Background(), ObservationQuery{
		Bounds:    geo.WilliamsTreaty,
		StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	assert.Len(t, obs, 3)
}

func TestObservations_PaginatesUntilShortPage(t *testing.T) {
	pages := map[int]observationsPage{
		1: {Page: 1, PerPage: 2, Results: results(2, 0)},
		2: {Page: 2, PerPage: 2, Results: results(2, 2)},
		3: {Page: 3, PerPage: 2, Results: results(1, 4)},
	}
	srv := httptest.NewServer(pageHandler(t, pages))
	defer srv.Close()

	c := testClient(srv.URL)
	obs, err := c.Observations(context.Background(), ObservationQuery{
		Bounds:  geo.Ontario,
		PerPage: 2,
	})
	require.NoError(t, err)

	require.Len(t, obs, 5)
	assert.Equal(t, float64(0), obs[0]["id"])
	assert.Equal(t, float64(4), obs[4]["id"])
}

func TestObservations_MaxResultsCeiling(t *testing.T) {
	pages := map[int]observationsPage{
		1: {Page: 1, PerPage: 2, Results: results(2, 0)},
		2: {Page: 2, PerPage: 2, Results: results(2, 2)},
	}
	srv := httptest.NewServer(pageHandler(t, pages))
	defer srv.Close()

	c := testClient(srv.URL)
	obs, err := c.Observations(context.Background(), ObservationQuery{
		Bounds:     geo.Ontario,
		PerPage:    2,
		MaxResults: 3,
	})
	require.NoError(t, err)
	assert.Len(t, obs, 3)
}

func TestObservations_EmptyFirstPage(t *testing.T) {
	pages := map[int]observationsPage{
		1: {Page: 1, PerPage: 200, Results: nil},
	}
	srv := httptest.NewServer(pageHandler(t, pages))
	defer srv.Close()

	c := testClient(srv.URL)
	obs, err := c.Observations(context.Background(), ObservationQuery{Bounds: geo.Ontario})
	require.NoError(t, err)
	assert.Empty(t, obs)
}

func TestObservationQuery_Defaults(t *testing.T) {
	q := ObservationQuery{PerPage: 999}
	q.applyDefaults()

	assert.Equal(t, "research", q.QualityGrade)
	assert.Equal(t, maxPerPage, q.PerPage)
	assert.Equal(t, 1000, q.MaxResults)
}

func TestCollectObservations_WritesDocument(t *testing.T) {
	pages := map[int]observationsPage{
		1: {Page: 1, PerPage: 200, Results: results(4, 0)},
	}
	srv := httptest.NewServer(pageHandler(t, pages))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "processed", "inaturalist_observations_2024.json")
	c := testClient(srv.URL)
	n, err := c.CollectObservations(context.Background(), path, ObservationQuery{Bounds: geo.WilliamsTreaty})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, float64(4), doc["count"])
	assert.Len(t, doc["observations"], 4)
	assert.Contains(t, doc, "collected_at")
	assert.Contains(t, doc, "bounds")
}

func TestCollectObservations_EmptyWritesNothing(t *testing.T) {
	pages := map[int]observationsPage{
		1: {Page: 1, PerPage: 200, Results: nil},
	}
	srv := httptest.NewServer(pageHandler(t, pages))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "observations.json")
	c := testClient(srv.URL)
	n, err := c.CollectObservations(context.Background(), path, ObservationQuery{Bounds: geo.Ontario})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoFileExists(t, path)
}

func TestFormatCoord(t *testing.T) {
	assert.Equal(t, "43.8", formatCoord(43.8))
	assert.Equal(t, "-95.2", formatCoord(-95.2))
	assert.Equal(t, "45", formatCoord(45))
}
