package report

import (
	"fmt"
	"os"
	"time"

	"github.com/robertsoden/ontario-environmental-data/internal/dataset"
	"github.com/robertsoden/ontario-environmental-data/internal/validate"
)

// FileStatus describes one data file found on disk, with its validation
// results.
type FileStatus struct {
	Name               string    `json:"name"`
	Path               string    `json:"path"`
	Size               int64     `json:"size"`
	SizeHuman          string    `json:"size_human"`
	Modified           time.Time `json:"modified"`
	Critical           bool      `json:"critical"`
	ValidationSuccess  bool      `json:"validation_success"`
	ValidationErrors   []string  `json:"validation_errors"`
	ValidationWarnings []string  `json:"validation_warnings"`
}

// MissingFile describes an expected data file that is absent.
type MissingFile struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Description string `json:"description"`
	Critical    bool   `json:"critical"`
}

// CategoryCount summarizes availability within one dataset category.
type CategoryCount struct {
	Available int `json:"available"`
	Total     int `json:"total"`
}

// Status is the availability + validation report written by the status check.
type Status struct {
	Timestamp          time.Time                          `json:"timestamp"`
	Available          []FileStatus                       `json:"available"`
	Missing            []MissingFile                      `json:"missing"`
	ValidationErrors   []string                           `json:"validation_errors"`
	ValidationWarnings []string                           `json:"validation_warnings"`
	Summary            map[dataset.Category]CategoryCount `json:"summary"`
	Verdict            Verdict                            `json:"verdict"`
}

// BuildStatus walks the registry, stats and validates each expected file, and
// aggregates the findings into a Status.
func BuildStatus(specs []dataset.Spec) *Status {
	st := &Status{
		Timestamp:          time.Now().UTC(),
		ValidationErrors:   []string{},
		ValidationWarnings: []string{},
		Summary:            make(map[dataset.Category]CategoryCount),
	}

	var entries []Entry
	for _, spec := range specs {
		if !spec.Enabled {
			continue
		}

		count := st.Summary[spec.Category]
		count.Total++

		info, err := os.Stat(spec.OutputPath)
		if err != nil {
			st.Missing = append(st.Missing, MissingFile{
				Name:        spec.ID,
				Path:        spec.OutputPath,
				Description: spec.Description,
				Critical:    spec.Critical,
			})
			entries = append(entries, Entry{
				ID:       spec.ID,
				Critical: spec.Critical,
				Status:   StatusMissing,
				Err:      missingDescription(spec),
			})
			st.Summary[spec.Category] = count
			continue
		}
		count.Available++
		st.Summary[spec.Category] = count

		outcome := validate.File(spec.OutputPath, string(spec.Format), spec.MinRecords, spec.RequiredFields)
		st.Available = append(st.Available, FileStatus{
			Name:               spec.ID,
			Path:               spec.OutputPath,
			Size:               info.Size(),
			SizeHuman:          HumanSize(info.Size()),
			Modified:           info.ModTime().UTC(),
			Critical:           spec.Critical,
			ValidationSuccess:  outcome.Success,
			ValidationErrors:   outcome.Errors,
			ValidationWarnings: outcome.Warnings,
		})
		entries = append(entries, Entry{
			ID:         spec.ID,
			Critical:   spec.Critical,
			Status:     StatusSuccess,
			Validation: &outcome,
		})
	}

	summary := Aggregate(entries)
	st.ValidationErrors = append(st.ValidationErrors, summary.Errors...)
	st.ValidationWarnings = append(st.ValidationWarnings, summary.Warnings...)
	st.Verdict = summary.Verdict
	return st
}

func missingDescription(spec dataset.Spec) string {
	if spec.Critical {
		return "MISSING (critical data source)"
	}
	return "MISSING"
}

// HumanSize renders a byte count the way humans read file sizes.
func HumanSize(size int64) string {
	v := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024.0 {
			return fmt.Sprintf("%.1f %s", v, unit)
		}
		v /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", v)
}
