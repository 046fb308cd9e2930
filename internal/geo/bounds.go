// Package geo holds the bounding boxes and spatial helpers shared by the
// source clients. All coordinates are WGS84.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Bounds is a geographic bounding box stored as (swlat, swlng, nelat, nelng),
// matching the convention of the upstream observation APIs.
type Bounds struct {
	SWLat float64
	SWLng float64
	NELat float64
	NELng float64
}

var (
	// Ontario covers the full provincial extent: Point Pelee in the south to
	// the Hudson Bay coast, Manitoba border to Quebec border.
	Ontario = Bounds{SWLat: 41.7, SWLng: -95.2, NELat: 56.9, NELng: -74.3}

	// WilliamsTreaty covers the Williams Treaty territory.
	WilliamsTreaty = Bounds{SWLat: 43.8, SWLng: -80.2, NELat: 45.2, NELng: -78.0}
)

// pointBuffer is the half-width in degrees applied around Point AOIs, roughly
// 11 km at Ontario latitudes.
const pointBuffer = 0.1

// Bound converts to an orb.Bound (min/max in lon-lat order).
func (b Bounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.SWLng, b.SWLat},
		Max: orb.Point{b.NELng, b.NELat},
	}
}

// Contains reports whether the lon-lat point lies inside the box.
func (b Bounds) Contains(p orb.Point) bool {
	return p.Lat() >= b.SWLat && p.Lat() <= b.NELat &&
		p.Lon() >= b.SWLng && p.Lon() <= b.NELng
}

// Envelope renders the box as "swlng,swlat,nelng,nelat", the envelope order
// expected by WFS BBOX filters and ArcGIS REST geometry parameters.
func (b Bounds) Envelope() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.SWLng, b.SWLat, b.NELng, b.NELat)
}

// FromAOI extracts a bounding box from an area-of-interest geometry.
// Point AOIs get a small buffer so they still select surrounding features.
func FromAOI(g orb.Geometry) (Bounds, error) {
	switch g := g.(type) {
	case orb.Point:
		return Bounds{
			SWLat: g.Lat() - pointBuffer,
			SWLng: g.Lon() - pointBuffer,
			NELat: g.Lat() + pointBuffer,
			NELng: g.Lon() + pointBuffer,
		}, nil
	case orb.Polygon, orb.MultiPolygon:
		bound := g.Bound()
		return Bounds{
			SWLat: bound.Min.Lat(),
			SWLng: bound.Min.Lon(),
			NELat: bound.Max.Lat(),
			NELng: bound.Max.Lon(),
		}, nil
	default:
		return Bounds{}, fmt.Errorf("unsupported AOI geometry type %T", g)
	}
}

// FilterFeatures returns the features whose anchor point falls inside the
// box: the point itself for Point geometries, otherwise the center of the
// geometry's bound.
func FilterFeatures(features []*geojson.Feature, b Bounds) []*geojson.Feature {
	var kept []*geojson.Feature
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		var anchor orb.Point
		if p, ok := f.Geometry.(orb.Point); ok {
			anchor = p
		} else {
			anchor = f.Geometry.Bound().Center()
		}
		if b.Contains(anchor) {
			kept = append(kept, f)
		}
	}
	return kept
}
