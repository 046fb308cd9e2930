// Command genfixtures writes deterministic local fixtures for datasets that
// are not fetched from a remote source: the Williams Treaty community points,
// approximate reserve boundary polygons derived from them, a small sample of
// iNaturalist-shaped observations, and the satellite metadata summary the
// status check expects. It is the offline substitute for a full collection
// run when developing against the registry.
//
// Usage:
//
//	go run ./cmd/genfixtures -data-dir data
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/robertsoden/ontario-environmental-data/internal/adapter/statcan"
	"github.com/robertsoden/ontario-environmental-data/internal/geo"
)

// boundaryBuffer is the half-width, in degrees, of the square drawn around
// each community point to approximate its reserve boundary.
const boundaryBuffer = 0.05

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "data", "root directory for generated data files")
	flag.Parse()

	processed := filepath.Join(*dataDir, "processed")

	communitiesPath := filepath.Join(processed, "communities", "williams_treaty_communities.geojson")
	n, err := statcan.WriteCommunityPoints(communitiesPath)
	if err != nil {
		return fmt.Errorf("writing community points: %w", err)
	}
	log.Printf("communities: %d features -> %s", n, communitiesPath)

	boundariesPath := filepath.Join(processed, "boundaries", "williams_treaty.geojson")
	fc := boundaryPolygons()
	if err := geo.WriteFeatureCollection(boundariesPath, fc); err != nil {
		return fmt.Errorf("writing boundary polygons: %w", err)
	}
	log.Printf("boundaries: %d features -> %s", len(fc.Features), boundariesPath)

	year := time.Now().UTC().Year()
	inatPath := filepath.Join(processed, fmt.Sprintf("inaturalist_observations_%d.json", year))
	count, err := writeSampleObservations(inatPath)
	if err != nil {
		return fmt.Errorf("writing sample observations: %w", err)
	}
	log.Printf("observations: %d records -> %s", count, inatPath)

	satellitePath := filepath.Join(processed, "satellite_data_info.json")
	if err := writeSatelliteInfo(satellitePath); err != nil {
		return fmt.Errorf("writing satellite info: %w", err)
	}
	log.Printf("satellite info -> %s", satellitePath)

	return nil
}

// boundaryPolygons approximates each community's reserve boundary as a square
// buffer around its point. Real boundaries come from the NRCan reserve
// collector; these exist so the boundary dataset validates offline.
func boundaryPolygons() *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	for _, f := range statcan.CommunityPoints().Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			continue
		}
		ring := orb.Ring{
			{p[0] - boundaryBuffer, p[1] - boundaryBuffer},
			{p[0] + boundaryBuffer, p[1] - boundaryBuffer},
			{p[0] + boundaryBuffer, p[1] + boundaryBuffer},
			{p[0] - boundaryBuffer, p[1] + boundaryBuffer},
			{p[0] - boundaryBuffer, p[1] - boundaryBuffer},
		}
		bf := geojson.NewFeature(orb.Polygon{ring})
		bf.Properties = geojson.Properties{
			"first_nation": f.Properties["first_nation"],
			"reserve_name": f.Properties["reserve_name"],
			"data_source":  "Approximate boundaries generated from community points",
		}
		out.Append(bf)
	}
	return out
}

// writeSampleObservations emits a handful of observations in the same shape
// the iNaturalist collector writes, placed inside the Williams Treaty area.
func writeSampleObservations(path string) (int, error) {
	type observation struct {
		ID          int      `json:"id"`
		SpeciesName string   `json:"species_guess"`
		ObservedOn  string   `json:"observed_on"`
		Quality     string   `json:"quality_grade"`
		Location    string   `json:"location"`
		Coordinates []string `json:"coordinates"`
	}

	samples := []observation{
		{ID: 1001, SpeciesName: "Haliaeetus leucocephalus", ObservedOn: "2024-05-12", Quality: "research", Location: "Curve Lake area", Coordinates: []string{"44.5", "-78.3"}},
		{ID: 1002, SpeciesName: "Castor canadensis", ObservedOn: "2024-06-03", Quality: "research", Location: "Scugog Lake", Coordinates: []string{"44.2", "-78.9"}},
		{ID: 1003, SpeciesName: "Chelydra serpentina", ObservedOn: "2024-06-18", Quality: "research", Location: "Rice Lake", Coordinates: []string{"44.1", "-78.2"}},
		{ID: 1004, SpeciesName: "Cygnus buccinator", ObservedOn: "2024-07-02", Quality: "research", Location: "Lake Couchiching", Coordinates: []string{"44.6", "-79.3"}},
		{ID: 1005, SpeciesName: "Ondatra zibethicus", ObservedOn: "2024-07-21", Quality: "research", Location: "Georgina Island", Coordinates: []string{"44.3", "-79.3"}},
	}

	payload := map[string]any{
		"observations": samples,
		"count":        len(samples),
		"bounds":       geo.WilliamsTreaty,
		"collected_at": time.Now().UTC().Format(time.RFC3339),
		"data_source":  "generated fixture",
	}
	if err := writeJSON(path, payload); err != nil {
		return 0, err
	}
	return len(samples), nil
}

// writeSatelliteInfo records where the satellite-derived layers come from.
// The rasters themselves are produced by a separate pipeline; the status
// check only tracks this summary.
func writeSatelliteInfo(path string) error {
	info := map[string]any{
		"description": "Satellite-derived environmental layers for the Williams Treaty area",
		"sources": []map[string]any{
			{
				"name":       "Sentinel-2 NDVI",
				"provider":   "Copernicus Open Access Hub",
				"resolution": "10m",
				"bands":      []string{"B04", "B08"},
				"cadence":    "5 days",
			},
			{
				"name":       "Landsat land cover",
				"provider":   "USGS EarthExplorer",
				"resolution": "30m",
				"cadence":    "16 days",
			},
		},
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	}
	return writeJSON(path, info)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
