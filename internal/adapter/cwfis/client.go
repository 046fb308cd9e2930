// Package cwfis fetches historical fire perimeters from the Canadian Wildland
// Fire Information System's WFS endpoint (the NBAC national burned area
// composite layer).
package cwfis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/paulmach/orb/geojson"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

const defaultWFSURL = "https://cwfis.cfs.nrcan.gc.ca/geoserver/public/wfs"

// Client queries the CWFIS GeoServer WFS.
type Client struct {
	requester *source.Requester
	wfsURL    string
	logger    *slog.Logger
}

// NewClient creates a CWFIS client on top of a shared requester.
func NewClient(requester *source.Requester, logger *slog.Logger) *Client {
	return &Client{
		requester: requester,
		wfsURL:    defaultWFSURL,
		logger:    logger,
	}
}

// FirePerimeters fetches NBAC fire perimeters year by year and merges them
// into one collection. Exactly one of province or bounds selects the area:
// the admin_area filter is more reliable for province-wide pulls because the
// NBAC layer's native CRS complicates bbox queries.
//
// A year that fails keeps the overall fetch going; partial history is more
// useful than none, and the validator catches actually-empty output.
func (c *Client) FirePerimeters(ctx context.Context, province string, bounds *geo.Bounds, startYear, endYear int) (*geojson.FeatureCollection, error) {
	spatialFilter := ""
	switch {
	case province != "":
		spatialFilter = fmt.Sprintf("admin_area='%s'", province)
	case bounds != nil:
		spatialFilter = fmt.Sprintf("BBOX(geometry,%s)", bounds.Envelope())
	default:
		return nil, fmt.Errorf("either province or bounds must be specified")
	}

	merged := geojson.NewFeatureCollection()
	for year := startYear; year <= endYear; year++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		fc, err := c.perimetersForYear(ctx, year, spatialFilter)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("fire perimeter year failed", "year", year, "error", err)
			continue
		}

		for _, f := range fc.Features {
			merged.Append(f)
		}
		c.logger.Debug("fetched fire perimeters", "year", year, "count", len(fc.Features))
	}

	c.logger.Info("fetched fire perimeters", "total", len(merged.Features),
		"start_year", startYear, "end_year", endYear)
	return merged, nil
}

func (c *Client) perimetersForYear(ctx context.Context, year int, spatialFilter string) (*geojson.FeatureCollection, error) {
	// bbox and CQL_FILTER are mutually exclusive in WFS, so the spatial
	// constraint rides inside the CQL filter with the year.
	params := url.Values{
		"service":      {"WFS"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"typeName":     {"public:nbac"},
		"outputFormat": {"application/json"},
		"srsName":      {"EPSG:4326"},
		"CQL_FILTER":   {fmt.Sprintf("year=%d AND %s", year, spatialFilter)},
	}

	resp, err := c.requester.Get(ctx, c.wfsURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "read fire perimeter response", Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "parse fire perimeter response", Err: err}
	}
	return fc, nil
}

// CollectFirePerimeters fetches Ontario-wide perimeters for the year range
// and writes the merged collection to path. Zero count with nil error means
// no fires matched.
func (c *Client) CollectFirePerimeters(ctx context.Context, path string, startYear, endYear int) (int, error) {
	fc, err := c.FirePerimeters(ctx, "ON", nil, startYear, endYear)
	if err != nil {
		return 0, err
	}
	if len(fc.Features) == 0 {
		return 0, nil
	}
	if err := geo.WriteFeatureCollection(path, fc); err != nil {
		return 0, err
	}
	return len(fc.Features), nil
}
