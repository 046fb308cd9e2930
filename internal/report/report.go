package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Source is the per-dataset section of the collection report.
type Source struct {
	Status FetchStatus `json:"status"`
	Count  int         `json:"count,omitempty"`
	File   string      `json:"file,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Validation lists run-wide validation findings, each prefixed with the
// dataset ID it belongs to.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Report is the collection-run report consumed by CI and status scripts.
type Report struct {
	Timestamp  time.Time         `json:"timestamp"`
	Selected   []string          `json:"selected,omitempty"`
	Sources    map[string]Source `json:"sources"`
	Validation Validation        `json:"validation"`
	Verdict    Verdict           `json:"verdict"`
}

// NewReport creates an empty report stamped with the current time.
func NewReport(selected []string) *Report {
	return &Report{
		Timestamp: time.Now().UTC(),
		Selected:  selected,
		Sources:   make(map[string]Source),
		Validation: Validation{
			Errors:   []string{},
			Warnings: []string{},
		},
	}
}

// WriteJSON marshals v with indentation and writes it to path, creating
// parent directories as needed.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
