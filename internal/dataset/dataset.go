// Package dataset is the single source of truth for every dataset the
// collector knows about: identity, category, output location, acceptance
// criteria, and how to collect it.
package dataset

import (
	"context"
	"os"
	"strings"
)

// Format identifies the on-disk format of a dataset's output file.
type Format string

const (
	FormatGeoJSON Format = "geojson"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
)

// Category groups datasets for reporting.
type Category string

const (
	CategoryBoundaries     Category = "boundaries"
	CategoryProtectedAreas Category = "protected_areas"
	CategoryBiodiversity   Category = "biodiversity"
	CategoryEnvironmental  Category = "environmental"
)

// Categories lists all categories in display order.
var Categories = []Category{
	CategoryBoundaries,
	CategoryProtectedAreas,
	CategoryBiodiversity,
	CategoryEnvironmental,
}

// Result reports what a collection function produced.
type Result struct {
	Count int
	File  string
}

// CollectFunc fetches one dataset and writes its output file.
type CollectFunc func(ctx context.Context) (Result, error)

// Spec describes one expected output file and its acceptance criteria. Specs
// are immutable for a run and safely shared across concurrent validations.
type Spec struct {
	ID          string
	Name        string
	Description string
	Category    Category

	OutputPath string
	Format     Format

	MinRecords     int
	RequiredFields []string

	// Critical datasets fail the whole run when absent or invalid.
	Critical bool

	// Static datasets are pre-processed artifacts; they are validated but
	// never re-collected while the file exists.
	Static bool

	Enabled bool

	Collect CollectFunc
}

// EnvVar is the environment variable that selects a dataset for collection.
func EnvVar(id string) string {
	return "COLLECT_" + strings.ToUpper(id)
}

// SelectedIDs returns the enabled dataset IDs whose COLLECT_<ID> environment
// variable is set to "true".
func SelectedIDs(specs []Spec) []string {
	var selected []string
	for _, s := range specs {
		if !s.Enabled {
			continue
		}
		if strings.EqualFold(os.Getenv(EnvVar(s.ID)), "true") {
			selected = append(selected, s.ID)
		}
	}
	return selected
}

// ByID returns the spec with the given ID, or false when unknown.
func ByID(specs []Spec, id string) (Spec, bool) {
	for _, s := range specs {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}
