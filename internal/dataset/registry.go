package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/robertsoden/ontario-environmental-data/internal/adapter/cwfis"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/geohub"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/inaturalist"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/statcan"
	"github.com/robertsoden/ontario-environmental-data/internal/geo"
)

// NBAC fire history coverage collected into one file.
const (
	fireStartYear = 1976
	fireEndYear   = 2024
)

// Clients bundles the source clients the registry's collect functions close
// over. Any client may be nil when its datasets are not selected.
type Clients struct {
	INaturalist *inaturalist.Client
	CWFIS       *cwfis.Client
	GeoHub      *geohub.Client
	StatCan     *statcan.Client
}

// Registry returns every dataset the collector knows about, with output paths
// rooted at dataDir. This is the single source of truth shared by the collect
// and status commands.
func Registry(dataDir string, c Clients) []Spec {
	processed := filepath.Join(dataDir, "processed")
	year := time.Now().UTC().Year()

	communitiesPath := filepath.Join(processed, "communities", "williams_treaty_communities.geojson")
	boundariesPath := filepath.Join(processed, "boundaries", "williams_treaty.geojson")
	firePath := filepath.Join(processed, fmt.Sprintf("fire_perimeters_%d_%d.geojson", fireStartYear, fireEndYear))
	parksPath := filepath.Join(processed, "provincial_parks.geojson")
	caPath := filepath.Join(processed, "conservation_authorities.geojson")
	inatPath := filepath.Join(processed, fmt.Sprintf("inaturalist_observations_%d.json", year))
	satellitePath := filepath.Join(processed, "satellite_data_info.json")

	return []Spec{
		{
			ID:             "williams_treaty_communities",
			Name:           "Williams Treaty Communities",
			Description:    "Williams Treaty First Nations community points",
			Category:       CategoryBoundaries,
			OutputPath:     communitiesPath,
			Format:         FormatGeoJSON,
			MinRecords:     7, // the seven Williams Treaty First Nations
			RequiredFields: []string{"first_nation", "reserve_name"},
			Critical:       true,
			Enabled:        true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := statcan.WriteCommunityPoints(communitiesPath)
				return Result{Count: n, File: communitiesPath}, err
			},
		},
		{
			ID:             "williams_treaty_boundaries",
			Name:           "Williams Treaty Boundaries",
			Description:    "Williams Treaty territory boundary polygons",
			Category:       CategoryBoundaries,
			OutputPath:     boundariesPath,
			Format:         FormatGeoJSON,
			MinRecords:     1,
			RequiredFields: []string{"first_nation"},
			Critical:       false, // nice to have but upstream often returns nothing
			Enabled:        true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := c.StatCan.CollectWilliamsTreatyBoundaries(ctx, boundariesPath)
				return Result{Count: n, File: boundariesPath}, err
			},
		},
		{
			ID:             "fire_perimeters",
			Name:           "Fire Perimeters",
			Description:    fmt.Sprintf("Historical fire perimeters (%d-%d)", fireStartYear, fireEndYear),
			Category:       CategoryEnvironmental,
			OutputPath:     firePath,
			Format:         FormatGeoJSON,
			MinRecords:     1,
			RequiredFields: []string{"year"},
			Enabled:        true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := c.CWFIS.CollectFirePerimeters(ctx, firePath, fireStartYear, fireEndYear)
				return Result{Count: n, File: firePath}, err
			},
		},
		{
			ID:             "provincial_parks",
			Name:           "Provincial Parks",
			Description:    "Ontario provincial parks boundaries",
			Category:       CategoryProtectedAreas,
			OutputPath:     parksPath,
			Format:         FormatGeoJSON,
			MinRecords:     1,
			RequiredFields: []string{"name"},
			Critical:       true,
			Enabled:        true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := c.GeoHub.CollectProvincialParks(ctx, parksPath)
				return Result{Count: n, File: parksPath}, err
			},
		},
		{
			ID:             "conservation_authorities",
			Name:           "Conservation Authorities",
			Description:    "Conservation authority boundaries",
			Category:       CategoryProtectedAreas,
			OutputPath:     caPath,
			Format:         FormatGeoJSON,
			MinRecords:     1,
			RequiredFields: []string{"name"},
			Enabled:        true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := c.GeoHub.CollectConservationAuthorities(ctx, caPath)
				return Result{Count: n, File: caPath}, err
			},
		},
		{
			ID:          "inaturalist",
			Name:        "iNaturalist Observations",
			Description: "iNaturalist research-grade biodiversity observations",
			Category:    CategoryBiodiversity,
			OutputPath:  inatPath,
			Format:      FormatJSON,
			MinRecords:  1,
			Enabled:     true,
			Collect: func(ctx context.Context) (Result, error) {
				n, err := c.INaturalist.CollectObservations(ctx, inatPath, inaturalist.ObservationQuery{
					Bounds:    geo.Ontario,
					StartDate: fmt.Sprintf("%d-01-01", year),
				})
				return Result{Count: n, File: inatPath}, err
			},
		},
		{
			// Satellite rasters are processed by a separate pipeline; only
			// the metadata summary it leaves behind is tracked here.
			ID:          "satellite",
			Name:        "Satellite Data Info",
			Description: "Satellite data information (NDVI, land cover)",
			Category:    CategoryEnvironmental,
			OutputPath:  satellitePath,
			Format:      FormatJSON,
			MinRecords:  1,
			Static:      true,
			Enabled:     true,
		},
	}
}
