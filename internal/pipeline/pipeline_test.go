package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertsoden/ontario-environmental-data/internal/dataset"
	"github.com/robertsoden/ontario-environmental-data/internal/observability"
	"github.com/robertsoden/ontario-environmental-data/internal/report"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writePoints(t *testing.T, path string, n int) {
	t.Helper()
	fc := geojson.NewFeatureCollection()
	for i := 0; i < n; i++ {
		f := geojson.NewFeature(orb.Point{-78.5, 44.5})
		f.Properties = geojson.Properties{"name": "Petroglyphs Provincial Park", "id": i}
		fc.Append(f)
	}
	data, err := json.Marshal(fc)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

// collectingSpec returns a spec whose Collect writes n features and counts
// invocations.
func collectingSpec(t *testing.T, dir, id string, n int, calls *int) dataset.Spec {
	t.Helper()
	path := filepath.Join(dir, id+".geojson")
	return dataset.Spec{
		ID:             id,
		Name:           id,
		Category:       dataset.CategoryProtectedAreas,
		OutputPath:     path,
		Format:         dataset.FormatGeoJSON,
		MinRecords:     1,
		RequiredFields: []string{"name"},
		Enabled:        true,
		Collect: func(_ context.Context) (dataset.Result, error) {
			*calls++
			writePoints(t, path, n)
			return dataset.Result{Count: n, File: path}, nil
		},
	}
}

func newTestPipeline(specs []dataset.Spec, overwrite bool) *Pipeline {
	return New(specs, overwrite, testLogger(), observability.NewMetricsForTesting())
}

func TestPipeline_CollectsAndValidates(t *testing.T) {
	dir := t.TempDir()
	var calls int
	specs := []dataset.Spec{collectingSpec(t, dir, "provincial_parks", 3, &calls)}

	rep, interrupted := newTestPipeline(specs, false).Run(context.Background(), []string{"provincial_parks"})

	assert.False(t, interrupted)
	assert.Equal(t, 1, calls)
	src := rep.Sources["provincial_parks"]
	assert.Equal(t, report.StatusSuccess, src.Status)
	assert.Equal(t, 3, src.Count)
	assert.Empty(t, rep.Validation.Errors)
	// Collected file has no crs member, which validation flags.
	assert.Equal(t, report.VerdictOKWithWarnings, rep.Verdict)
}

func TestPipeline_SkipsExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	var calls int
	spec := collectingSpec(t, dir, "provincial_parks", 3, &calls)
	writePoints(t, spec.OutputPath, 3)

	rep, _ := newTestPipeline([]dataset.Spec{spec}, false).Run(context.Background(), []string{"provincial_parks"})

	assert.Equal(t, 0, calls)
	assert.Equal(t, report.StatusSkipped, rep.Sources["provincial_parks"].Status)
	// Skipped files are still validated.
	assert.Empty(t, rep.Validation.Errors)
	assert.NotEmpty(t, rep.Validation.Warnings)
}

func TestPipeline_OverwriteRecollects(t *testing.T) {
	dir := t.TempDir()
	var calls int
	spec := collectingSpec(t, dir, "provincial_parks", 3, &calls)
	writePoints(t, spec.OutputPath, 1)

	rep, _ := newTestPipeline([]dataset.Spec{spec}, true).Run(context.Background(), []string{"provincial_parks"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, report.StatusSuccess, rep.Sources["provincial_parks"].Status)
}

func TestPipeline_StaticDatasetNeverCollected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "satellite_data_info.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sources": [{"name": "Sentinel-2 NDVI", "provider": "Copernicus", "resolution": "10m", "cadence": "5 days"}]}`), 0o644))

	spec := dataset.Spec{
		ID:         "satellite",
		Category:   dataset.CategoryEnvironmental,
		OutputPath: path,
		Format:     dataset.FormatJSON,
		MinRecords: 1,
		Static:     true,
		Enabled:    true,
	}

	rep, _ := newTestPipeline([]dataset.Spec{spec}, true).Run(context.Background(), []string{"satellite"})
	assert.Equal(t, report.StatusStatic, rep.Sources["satellite"].Status)
}

func TestPipeline_CollectErrorDegradesRun(t *testing.T) {
	spec := dataset.Spec{
		ID:         "fire_perimeters",
		Category:   dataset.CategoryEnvironmental,
		OutputPath: filepath.Join(t.TempDir(), "fires.geojson"),
		Format:     dataset.FormatGeoJSON,
		Enabled:    true,
		Collect: func(_ context.Context) (dataset.Result, error) {
			return dataset.Result{}, errors.New("request failed after 3 attempts")
		},
	}

	rep, _ := newTestPipeline([]dataset.Spec{spec}, false).Run(context.Background(), []string{"fire_perimeters"})

	src := rep.Sources["fire_perimeters"]
	assert.Equal(t, report.StatusError, src.Status)
	assert.Contains(t, src.Error, "after 3 attempts")
	assert.Equal(t, report.VerdictDegraded, rep.Verdict)
}

func TestPipeline_CriticalErrorFailsRun(t *testing.T) {
	spec := dataset.Spec{
		ID:         "williams_treaty_communities",
		Category:   dataset.CategoryBoundaries,
		OutputPath: filepath.Join(t.TempDir(), "communities.geojson"),
		Format:     dataset.FormatGeoJSON,
		Critical:   true,
		Enabled:    true,
		Collect: func(_ context.Context) (dataset.Result, error) {
			return dataset.Result{}, errors.New("HTTP 404: layer not found")
		},
	}

	rep, _ := newTestPipeline([]dataset.Spec{spec}, false).Run(context.Background(), []string{"williams_treaty_communities"})
	assert.Equal(t, report.VerdictCriticalFailure, rep.Verdict)
}

func TestPipeline_EmptyResultIsNoData(t *testing.T) {
	spec := dataset.Spec{
		ID:         "williams_treaty_boundaries",
		Category:   dataset.CategoryBoundaries,
		OutputPath: filepath.Join(t.TempDir(), "boundaries.geojson"),
		Format:     dataset.FormatGeoJSON,
		Enabled:    true,
		Collect: func(_ context.Context) (dataset.Result, error) {
			return dataset.Result{Count: 0}, nil
		},
	}

	rep, _ := newTestPipeline([]dataset.Spec{spec}, false).Run(context.Background(), []string{"williams_treaty_boundaries"})

	assert.Equal(t, report.StatusNoData, rep.Sources["williams_treaty_boundaries"].Status)
	assert.Equal(t, report.VerdictOKWithWarnings, rep.Verdict)
}

func TestPipeline_UnknownDatasetIgnored(t *testing.T) {
	rep, interrupted := newTestPipeline(nil, false).Run(context.Background(), []string{"not_a_dataset"})

	assert.False(t, interrupted)
	assert.Empty(t, rep.Sources)
	assert.Equal(t, report.VerdictOK, rep.Verdict)
}

func TestPipeline_CancelledContextInterrupts(t *testing.T) {
	dir := t.TempDir()
	var calls int
	specs := []dataset.Spec{collectingSpec(t, dir, "provincial_parks", 3, &calls)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, interrupted := newTestPipeline(specs, false).Run(ctx, []string{"provincial_parks"})
	assert.True(t, interrupted)
	assert.Equal(t, 0, calls)
}
