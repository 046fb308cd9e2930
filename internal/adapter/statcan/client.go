// Package statcan fetches First Nations reserve boundaries from the NRCan
// Aboriginal Lands of Canada Legislative Boundaries service (the successor to
// the retired Statistics Canada WFS), and carries fallback Williams Treaty
// community locations for when the upstream service is unavailable.
package statcan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

const defaultBaseURL = "https://proxyinternet.nrcan-rncan.gc.ca/arcgis/rest/services/CLSS-SATC/CLSS_Administrative_Boundaries/MapServer/0/query"

// WilliamsTreatyFirstNations are the seven signatories of the 1923 Williams
// Treaties.
var WilliamsTreatyFirstNations = []string{
	"Alderville First Nation",
	"Curve Lake First Nation",
	"Hiawatha First Nation",
	"Mississaugas of Scugog Island First Nation",
	"Chippewas of Beausoleil First Nation",
	"Chippewas of Georgina Island First Nation",
	"Chippewas of Rama First Nation",
}

// Client queries the NRCan Aboriginal Lands REST endpoint.
type Client struct {
	requester *source.Requester
	baseURL   string
	logger    *slog.Logger
}

// NewClient creates a reserve-boundary client on top of a shared requester.
func NewClient(requester *source.Requester, logger *slog.Logger) *Client {
	return &Client{
		requester: requester,
		baseURL:   defaultBaseURL,
		logger:    logger,
	}
}

// ReserveBoundaries fetches Indian Reserve polygons, optionally filtered to a
// province code and a set of First Nation names.
func (c *Client) ReserveBoundaries(ctx context.Context, province string, firstNations []string, maxFeatures int) (*geojson.FeatureCollection, error) {
	where := []string{"distributionType='IR'"}
	if province != "" {
		where = append(where, fmt.Sprintf("jurisdiction='%s'", quoteEscape(province)))
	}
	if len(firstNations) > 0 {
		nameFilters := make([]string, len(firstNations))
		for i, name := range firstNations {
			nameFilters[i] = fmt.Sprintf("adminAreaNameEng LIKE '%%%s%%'", quoteEscape(name))
		}
		where = append(where, "("+strings.Join(nameFilters, " OR ")+")")
	}

	params := url.Values{
		"where":             {strings.Join(where, " AND ")},
		"outFields":         {"*"},
		"returnGeometry":    {"true"},
		"f":                 {"geojson"},
		"resultRecordCount": {strconv.Itoa(maxFeatures)},
	}

	resp, err := c.requester.Get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "read reserve boundary response", Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "parse reserve boundary response", Err: err}
	}

	c.logger.Info("fetched reserve boundaries", "count", len(fc.Features))
	return fc, nil
}

// Fetch implements source.Fetcher: all Ontario reserve boundaries as flat
// records with GeoJSON geometries.
func (c *Client) Fetch(ctx context.Context) ([]map[string]any, error) {
	fc, err := c.ReserveBoundaries(ctx, "ON", nil, 1000)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]any, 0, len(fc.Features))
	for _, f := range fc.Features {
		name, _ := f.Properties["adminAreaNameEng"].(string)
		records = append(records, map[string]any{
			"reserve_name":      name,
			"reserve_id":        f.Properties["adminAreaId"],
			"first_nation":      name,
			"province":          f.Properties["jurisdiction"],
			"distribution_type": f.Properties["distributionTypeEng"],
			"accuracy":          f.Properties["absoluteAccuracyEng"],
			"geometry":          geojson.NewGeometry(f.Geometry),
			"data_source":       "Natural Resources Canada - Aboriginal Lands of Canada",
			"web_reference":     f.Properties["webReference"],
		})
	}
	return records, nil
}

// CollectWilliamsTreatyBoundaries fetches the reserve polygons of the
// Williams Treaty First Nations and writes them as a feature collection.
// A zero count with nil error means the upstream returned no match.
func (c *Client) CollectWilliamsTreatyBoundaries(ctx context.Context, path string) (int, error) {
	fc, err := c.ReserveBoundaries(ctx, "ON", WilliamsTreatyFirstNations, 100)
	if err != nil {
		return 0, err
	}
	if len(fc.Features) == 0 {
		return 0, nil
	}

	// Tag each polygon with the matching treaty signatory so downstream
	// renderers can join on first_nation.
	for _, f := range fc.Features {
		name, _ := f.Properties["adminAreaNameEng"].(string)
		f.Properties["first_nation"] = matchFirstNation(name)
		f.Properties["reserve_name"] = name
	}

	if err := geo.WriteFeatureCollection(path, fc); err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}

// quoteEscape doubles single quotes so a name embedded in a where-clause
// literal cannot terminate it early.
func quoteEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// matchFirstNation maps a reserve's administrative name back to the treaty
// signatory it belongs to. Reserve names embed the nation's place name but
// drop band prefixes ("Rama 32", not "Chippewas of Rama 32"), so matching
// runs on the place name alone. Unmatched reserves keep their administrative
// name.
func matchFirstNation(reserveName string) string {
	lower := strings.ToLower(reserveName)
	for _, nation := range WilliamsTreatyFirstNations {
		key := strings.ToLower(nation)
		key = strings.TrimSuffix(key, " first nation")
		key = strings.TrimPrefix(key, "chippewas of ")
		key = strings.TrimPrefix(key, "mississaugas of ")
		if strings.Contains(lower, key) {
			return nation
		}
	}
	return reserveName
}

// compile-time check that Client satisfies the shared fetch contract.
var _ source.Fetcher = (*Client)(nil)
