// Package validate certifies that collected data files are structurally
// trustworthy before map renderers and CI checks rely on them. It checks
// existence, parseability, record counts, required fields, and geometry
// validity, and reports findings as errors (fatal) and warnings (advisory)
// rather than panicking on malformed data.
package validate

import (
	"fmt"
	"os"
)

// minFileSizeBytes is the smallest plausible data file. Anything under this
// is treated as a failed or truncated download.
const minFileSizeBytes = 100

// Outcome reports the result of validating one data file. Errors are fatal:
// the file fails acceptance. Warnings are advisory and do not block.
type Outcome struct {
	Success  bool
	Errors   []string
	Warnings []string
}

func outcome(errs, warns []string) Outcome {
	return Outcome{Success: len(errs) == 0, Errors: errs, Warnings: warns}
}

// File validates a data file against its expected format. It never returns an
// error for data-shape problems; everything lands in the Outcome so results
// stay aggregable without per-call error handling.
//
// Supported formats are "geojson", "json" (observation lists), and "csv".
func File(path, format string, minRecords int, requiredFields []string) Outcome {
	if err := checkExists(path); err != nil {
		return outcome([]string{err.Error()}, nil)
	}

	switch format {
	case "geojson":
		return outcome(validateGeoJSON(path, minRecords, requiredFields))
	case "json":
		return outcome(validateObservations(path, minRecords, requiredFields))
	case "csv":
		return outcome(validateCSV(path, minRecords, requiredFields))
	default:
		return outcome([]string{fmt.Sprintf("unknown data type: %q", format)}, nil)
	}
}

// checkExists verifies the file exists and is at least minFileSizeBytes.
func checkExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", path)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() < minFileSizeBytes {
		return fmt.Errorf("file is too small (%d bytes, expected at least %d): %s",
			info.Size(), minFileSizeBytes, path)
	}
	return nil
}
