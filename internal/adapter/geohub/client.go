// Package geohub fetches protected-area boundaries from Ontario GeoHub's
// ArcGIS REST services: provincial parks from the LIO topographic layers and
// conservation authority boundaries from the MOE service.
package geohub

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/robertsoden/ontario-environmental-data/internal/geo"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

const (
	defaultParksURL = "https://ws.lioservices.lrc.gov.on.ca/arcgis1071a/rest/services/LIO_Cartographic/LIO_Topographic/MapServer/9/query"
	defaultCAURL    = "https://ws.lioservices.lrc.gov.on.ca/arcgis1071a/rest/services/MOE/Conservation_Authorities/MapServer/0/query"
)

// parkPropertyNames maps LIO attribute names onto the stable schema the rest
// of the system expects.
var parkPropertyNames = map[string]string{
	"PARK_NAME":       "name",
	"OFFICIAL_NAME":   "official_name",
	"ONT_PARK_ID":     "park_id",
	"REGULATION":      "designation",
	"AREA_HA":         "hectares",
	"MANAGEMENT_UNIT": "managing_authority",
	"PARK_CLASS":      "park_class",
	"ZONE_CLASS":      "zone_class",
}

// Client queries Ontario GeoHub ArcGIS REST endpoints.
type Client struct {
	requester *source.Requester
	parksURL  string
	caURL     string
	logger    *slog.Logger
}

// NewClient creates a GeoHub client on top of a shared requester.
func NewClient(requester *source.Requester, logger *slog.Logger) *Client {
	return &Client{
		requester: requester,
		parksURL:  defaultParksURL,
		caURL:     defaultCAURL,
		logger:    logger,
	}
}

// query performs an ArcGIS REST feature query returning GeoJSON. A nil bounds
// fetches the full layer.
func (c *Client) query(ctx context.Context, base string, bounds *geo.Bounds) (*geojson.FeatureCollection, error) {
	params := url.Values{
		"where":     {"1=1"},
		"outFields": {"*"},
		"f":         {"geojson"},
	}
	if bounds != nil {
		params.Set("geometry", bounds.Envelope())
		params.Set("geometryType", "esriGeometryEnvelope")
		params.Set("spatialRel", "esriSpatialRelIntersects")
	}

	resp, err := c.requester.Get(ctx, base+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "read feature query response", Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &source.DataSourceError{Message: "parse feature query response", Err: err}
	}
	return fc, nil
}

// ProvincialParks fetches Ontario provincial park and conservation reserve
// boundaries with normalized property names.
func (c *Client) ProvincialParks(ctx context.Context, bounds *geo.Bounds) (*geojson.FeatureCollection, error) {
	fc, err := c.query(ctx, c.parksURL, bounds)
	if err != nil {
		return nil, err
	}

	for _, f := range fc.Features {
		renameProperties(f, parkPropertyNames)
		ensureName(f)
		if _, ok := f.Properties["official_name"]; !ok {
			f.Properties["official_name"] = f.Properties["name"]
		}
		if _, ok := f.Properties["designation"]; !ok {
			f.Properties["designation"] = "Provincial Park"
		}
		if _, ok := f.Properties["managing_authority"]; !ok {
			f.Properties["managing_authority"] = "Ontario Parks"
		}
		if _, ok := f.Properties["hectares"]; !ok && f.Geometry != nil {
			// Planar degree-based area is only indicative; the LIO layer
			// normally carries AREA_HA so this is a rare fallback.
			f.Properties["hectares"] = planar.Area(f.Geometry) * 1e6
		}
	}

	c.logger.Info("fetched provincial parks", "count", len(fc.Features))
	return fc, nil
}

// ConservationAuthorities fetches conservation authority boundaries with a
// normalized name property.
func (c *Client) ConservationAuthorities(ctx context.Context, bounds *geo.Bounds) (*geojson.FeatureCollection, error) {
	fc, err := c.query(ctx, c.caURL, bounds)
	if err != nil {
		return nil, err
	}
	for _, f := range fc.Features {
		ensureName(f)
	}
	c.logger.Info("fetched conservation authorities", "count", len(fc.Features))
	return fc, nil
}

// CollectProvincialParks fetches the full parks layer and writes it to path.
func (c *Client) CollectProvincialParks(ctx context.Context, path string) (int, error) {
	fc, err := c.ProvincialParks(ctx, nil)
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

// CollectConservationAuthorities fetches the CA layer and writes it to path.
func (c *Client) CollectConservationAuthorities(ctx context.Context, path string) (int, error) {
	fc, err := c.ConservationAuthorities(ctx, nil)
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

func renameProperties(f *geojson.Feature, names map[string]string) {
	for from, to := range names {
		if v, ok := f.Properties[from]; ok {
			f.Properties[to] = v
			delete(f.Properties, from)
		}
	}
}

// ensureName guarantees a "name" property, falling back to any attribute
// whose key contains "name".
func ensureName(f *geojson.Feature) {
	if _, ok := f.Properties["name"]; ok {
		return
	}
	for k, v := range f.Properties {
		if strings.Contains(strings.ToLower(k), "name") {
			f.Properties["name"] = v
			return
		}
	}
}
