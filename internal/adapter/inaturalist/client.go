// Package inaturalist fetches research-grade biodiversity observations from
// the iNaturalist API v1. No API key is required; the public rate limit is
// 60 requests per minute.
package inaturalist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

const (
	defaultBaseURL = "https://api.inaturalist.org/v1"
	maxPerPage     = 200
)

// ObservationQuery selects which observations to fetch.
type ObservationQuery struct {
	Bounds       geo.Bounds
	StartDate    string // YYYY-MM-DD, optional
	EndDate      string // YYYY-MM-DD, optional
	QualityGrade string // "research", "needs_id", or "casual"; default research
	PerPage      int    // capped at 200
	MaxResults   int    // total fetch ceiling; default 1000
}

func (q *ObservationQuery) applyDefaults() {
	if q.QualityGrade == "" {
		q.QualityGrade = "research"
	}
	if q.PerPage <= 0 || q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
	if q.MaxResults <= 0 {
		q.MaxResults = 1000
	}
}

// Client queries the iNaturalist observations API.
type Client struct {
	requester *source.Requester
	baseURL   string
	logger    *slog.Logger
}

// NewClient creates an iNaturalist client on top of a shared requester.
func NewClient(requester *source.Requester, logger *slog.Logger) *Client {
	return &Client{
		requester: requester,
		baseURL:   defaultBaseURL,
		logger:    logger,
	}
}

// observationsPage is one page of the API response.
type observationsPage struct {
	TotalResults int              `json:"total_results"`
	Page         int              `json:"page"`
	PerPage      int              `json:"per_page"`
	Results      []map[string]any `json:"results"`
}

// Observations pages through observations inside the query bounds until the
// result ceiling or the final page is reached.
func (c *Client) Observations(ctx context.Context, q ObservationQuery) ([]map[string]any, error) {
	q.applyDefaults()

	params := url.Values{
		"swlat":         {formatCoord(q.Bounds.SWLat)},
		"swlng":         {formatCoord(q.Bounds.SWLng)},
		"nelat":         {formatCoord(q.Bounds.NELat)},
		"nelng":         {formatCoord(q.Bounds.NELng)},
		"quality_grade": {q.QualityGrade},
		"geo":           {"true"},
		"photos":        {"true"},
		"per_page":      {strconv.Itoa(q.PerPage)},
	}
	if q.StartDate != "" {
		params.Set("d1", q.StartDate)
	}
	if q.EndDate != "" {
		params.Set("d2", q.EndDate)
	}

	var all []map[string]any
	for page := 1; len(all) < q.MaxResults; page++ {
		params.Set("page", strconv.Itoa(page))

		var resp observationsPage
		if err := c.requester.GetJSON(ctx, c.baseURL+"/observations?"+params.Encode(), &resp); err != nil {
			return nil, err
		}
		if len(resp.Results) == 0 {
			break
		}

		all = append(all, resp.Results...)
		c.logger.Debug("fetched observation page", "page", page, "count", len(resp.Results))

		// A short page is the last page.
		if len(resp.Results) < q.PerPage {
			break
		}
	}

	if len(all) > q.MaxResults {
		all = all[:q.MaxResults]
	}
	c.logger.Info("fetched observations", "count", len(all))
	return all, nil
}

// Fetch implements source.Fetcher: this year's research-grade observations
// across Ontario.
func (c *Client) Fetch(ctx context.Context) ([]map[string]any, error) {
	year := time.Now().UTC().Year()
	return c.Observations(ctx, ObservationQuery{
		Bounds:    geo.Ontario,
		StartDate: fmt.Sprintf("%d-01-01", year),
	})
}

// CollectObservations fetches observations and writes them as a JSON document
// with an "observations" key plus collection metadata.
func (c *Client) CollectObservations(ctx context.Context, path string, q ObservationQuery) (int, error) {
	observations, err := c.Observations(ctx, q)
	if err != nil {
		return 0, err
	}
	if len(observations) == 0 {
		return 0, nil
	}

	doc := map[string]any{
		"observations": observations,
		"count":        len(observations),
		"bounds":       q.Bounds,
		"collected_at": time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal observations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(observations), nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ source.Fetcher = (*Client)(nil)
