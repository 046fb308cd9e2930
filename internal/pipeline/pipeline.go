// Package pipeline orchestrates a collection run: fetch each selected
// dataset, validate whatever lands on disk, and fold the results into a
// collection report.
package pipeline

import (
	"context"
	"log/slog"
	"os"

	"github.com/robertsoden/ontario-environmental-data/internal/dataset"
	"github.com/robertsoden/ontario-environmental-data/internal/observability"
	"github.com/robertsoden/ontario-environmental-data/internal/report"
	"github.com/robertsoden/ontario-environmental-data/internal/validate"
)

// Pipeline runs selected datasets through collect, validate, and aggregate.
type Pipeline struct {
	specs     []dataset.Spec
	overwrite bool
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline over the given dataset specs. When overwrite is
// false, datasets whose output file already exists are validated but not
// re-collected.
func New(specs []dataset.Spec, overwrite bool, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		specs:     specs,
		overwrite: overwrite,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run collects each selected dataset in order, validating whatever lands on
// disk. It returns the finished report and whether the run was interrupted.
func (p *Pipeline) Run(ctx context.Context, selected []string) (*report.Report, bool) {
	rep := report.NewReport(selected)
	var entries []report.Entry

	p.logger.Info("starting data collection",
		"selected", len(selected), "overwrite", p.overwrite)

	for _, id := range selected {
		if ctx.Err() != nil {
			return p.finish(rep, entries), true
		}

		spec, ok := dataset.ByID(p.specs, id)
		if !ok {
			p.logger.Warn("unknown dataset", "dataset", id)
			continue
		}

		entry := p.collectOne(ctx, spec, rep)
		if ctx.Err() != nil {
			return p.finish(rep, entries), true
		}
		entries = append(entries, entry)
		p.metrics.DatasetStatus.WithLabelValues(spec.ID, string(entry.Status)).Inc()
	}

	return p.finish(rep, entries), false
}

// collectOne collects a single dataset and records it in the report.
func (p *Pipeline) collectOne(ctx context.Context, spec dataset.Spec, rep *report.Report) report.Entry {
	entry := report.Entry{ID: spec.ID, Critical: spec.Critical}
	logger := p.logger.With("dataset", spec.ID)

	exists := fileExists(spec.OutputPath)

	// Static datasets are produced elsewhere; never re-collect while present.
	if spec.Static && exists {
		logger.Info("static dataset present, skipping collection")
		entry.Status = report.StatusStatic
		entry.Validation = p.validateFile(spec)
		rep.Sources[spec.ID] = report.Source{Status: report.StatusStatic, File: spec.OutputPath}
		return entry
	}

	if exists && !p.overwrite {
		logger.Info("output exists, skipping (set OVERWRITE=true to re-collect)")
		entry.Status = report.StatusSkipped
		entry.Validation = p.validateFile(spec)
		rep.Sources[spec.ID] = report.Source{Status: report.StatusSkipped, File: spec.OutputPath}
		return entry
	}

	if spec.Collect == nil {
		logger.Warn("dataset has no collector")
		entry.Status = report.StatusSkipped
		rep.Sources[spec.ID] = report.Source{Status: report.StatusSkipped}
		return entry
	}

	logger.Info("collecting dataset", "name", spec.Name)
	result, err := spec.Collect(ctx)
	switch {
	case err != nil:
		logger.Error("collection failed", "error", err)
		entry.Status = report.StatusError
		entry.Err = err.Error()
		rep.Sources[spec.ID] = report.Source{Status: report.StatusError, Error: err.Error()}

	case result.Count == 0:
		logger.Warn("no data returned")
		entry.Status = report.StatusNoData
		rep.Sources[spec.ID] = report.Source{Status: report.StatusNoData}

	default:
		logger.Info("dataset collected", "count", result.Count, "file", result.File)
		entry.Status = report.StatusSuccess
		entry.Validation = p.validateFile(spec)
		p.metrics.RecordsCollected.WithLabelValues(spec.ID).Set(float64(result.Count))
		rep.Sources[spec.ID] = report.Source{
			Status: report.StatusSuccess,
			Count:  result.Count,
			File:   result.File,
		}
	}
	return entry
}

// validateFile certifies the dataset's output file and records findings.
func (p *Pipeline) validateFile(spec dataset.Spec) *validate.Outcome {
	outcome := validate.File(spec.OutputPath, string(spec.Format), spec.MinRecords, spec.RequiredFields)
	p.metrics.ValidationErrors.WithLabelValues(spec.ID).Add(float64(len(outcome.Errors)))
	p.metrics.ValidationWarnings.WithLabelValues(spec.ID).Add(float64(len(outcome.Warnings)))
	if !outcome.Success {
		p.logger.Warn("validation failed", "dataset", spec.ID, "errors", outcome.Errors)
	}
	return &outcome
}

// finish folds the accumulated entries into the report's validation section.
func (p *Pipeline) finish(rep *report.Report, entries []report.Entry) *report.Report {
	summary := report.Aggregate(entries)
	rep.Validation.Errors = summary.Errors
	rep.Validation.Warnings = summary.Warnings
	rep.Verdict = summary.Verdict
	return rep
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
