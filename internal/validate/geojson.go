package validate

import (
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// invalidGeometryRatio is the share of invalid geometries above which the
// whole file fails instead of warning.
const invalidGeometryRatio = 0.10

func validateGeoJSON(path string, minRecords int, requiredFields []string) (errs, warns []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("failed to read %s: %v", path, err)}, nil
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return []string{fmt.Sprintf("invalid GeoJSON in %s: %v", path, err)}, nil
	}

	if len(fc.Features) < minRecords {
		errs = append(errs, fmt.Sprintf(
			"GeoJSON has too few features in %s: %d (expected at least %d)",
			path, len(fc.Features), minRecords))
	}

	if missing := missingProperties(fc.Features, requiredFields); len(missing) > 0 {
		errs = append(errs, fmt.Sprintf(
			"GeoJSON missing required properties in %s: %s",
			path, strings.Join(missing, ", ")))
	}

	if w := checkCRS(fc, path); w != "" {
		warns = append(warns, w)
	}

	geomErrs, geomWarns := checkGeometries(fc.Features, path)
	errs = append(errs, geomErrs...)
	warns = append(warns, geomWarns...)

	return errs, warns
}

// missingProperties returns the required property names absent from every
// feature in the collection. A property present on any feature counts as part
// of the schema.
func missingProperties(features []*geojson.Feature, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	for _, f := range features {
		for k := range f.Properties {
			seen[k] = true
		}
	}
	var missing []string
	for _, name := range required {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// checkCRS warns when the collection declares no CRS or a CRS other than
// WGS84. GeoJSON per RFC 7946 is always WGS84, but legacy exports still carry
// a crs member worth flagging.
func checkCRS(fc *geojson.FeatureCollection, path string) string {
	raw, ok := fc.ExtraMembers["crs"]
	if !ok || raw == nil {
		return fmt.Sprintf("GeoJSON has no CRS defined in %s", path)
	}
	name := crsName(raw)
	if name == "" {
		return fmt.Sprintf("GeoJSON has no CRS defined in %s", path)
	}
	if strings.Contains(name, "CRS84") || strings.Contains(name, "4326") {
		return ""
	}
	return fmt.Sprintf("GeoJSON CRS is %s, expected EPSG:4326 in %s", name, path)
}

func crsName(raw any) string {
	obj, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	props, ok := obj["properties"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	return name
}

// checkGeometries tallies empty and invalid geometries. More than 10% invalid
// fails the file; any smaller number is advisory and lists the affected
// feature indices and reasons.
func checkGeometries(features []*geojson.Feature, path string) (errs, warns []string) {
	if len(features) == 0 {
		return nil, nil
	}

	var reasons []string
	for i, f := range features {
		if reason := geometryInvalidReason(f.Geometry); reason != "" {
			reasons = append(reasons, fmt.Sprintf("feature %d: %s", i, reason))
		}
	}
	if len(reasons) == 0 {
		return nil, nil
	}

	if float64(len(reasons)) > float64(len(features))*invalidGeometryRatio {
		errs = append(errs, fmt.Sprintf(
			"too many invalid geometries in %s: %d/%d", path, len(reasons), len(features)))
		return errs, nil
	}

	warns = append(warns, fmt.Sprintf(
		"some invalid geometries in %s: %d/%d (%s)",
		path, len(reasons), len(features), strings.Join(reasons, "; ")))
	return nil, warns
}

// geometryInvalidReason returns a short description of why a geometry is
// unusable, or "" when it is acceptable.
func geometryInvalidReason(g orb.Geometry) string {
	switch g := g.(type) {
	case nil:
		return "empty geometry"
	case orb.Point:
		return ""
	case orb.MultiPoint:
		if len(g) == 0 {
			return "empty geometry"
		}
	case orb.LineString:
		if len(g) < 2 {
			return "degenerate linestring"
		}
	case orb.MultiLineString:
		if len(g) == 0 {
			return "empty geometry"
		}
		for _, ls := range g {
			if len(ls) < 2 {
				return "degenerate linestring"
			}
		}
	case orb.Polygon:
		return polygonInvalidReason(g)
	case orb.MultiPolygon:
		if len(g) == 0 {
			return "empty geometry"
		}
		for _, p := range g {
			if reason := polygonInvalidReason(p); reason != "" {
				return reason
			}
		}
	case orb.Collection:
		if len(g) == 0 {
			return "empty geometry"
		}
		for _, sub := range g {
			if reason := geometryInvalidReason(sub); reason != "" {
				return reason
			}
		}
	}
	return ""
}

func polygonInvalidReason(p orb.Polygon) string {
	if len(p) == 0 {
		return "empty geometry"
	}
	for _, ring := range p {
		if len(ring) < 4 {
			return "ring has fewer than 4 points"
		}
		if !ring.Closed() {
			return "unclosed ring"
		}
		if ringSelfIntersects(ring) {
			return "self-intersecting ring"
		}
	}
	return ""
}

// ringSelfIntersects reports whether any two non-adjacent edges of the ring
// properly cross. This catches bowties and figure-eights, the invalid shapes
// upstream exports actually produce.
func ringSelfIntersects(ring orb.Ring) bool {
	n := len(ring) - 1 // number of edges in a closed ring
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			// Edges 0 and n-1 share the ring's start/end vertex.
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsCross(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsCross reports whether segments p1-p2 and q1-q2 properly intersect
// (cross at a point interior to both).
func segmentsCross(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func crossProduct(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
