package validate

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// validateCSV checks row count and column headers. Unlike the JSON
// observation path, required fields here are hard failures: columns are cheap
// to check completely.
func validateCSV(path string, minRecords int, requiredFields []string) (errs, warns []string) {
	f, err := os.Open(path)
	if err != nil {
		return []string{fmt.Sprintf("failed to read CSV %s: %v", path, err)}, nil
	}
	defer f.Close()

	r := csv.NewReader(f)
	all, err := r.ReadAll()
	if err != nil {
		return []string{fmt.Sprintf("failed to read CSV %s: %v", path, err)}, nil
	}

	var header []string
	var rows int
	if len(all) > 0 {
		header = all[0]
		rows = len(all) - 1
	}

	if rows < minRecords {
		errs = append(errs, fmt.Sprintf(
			"CSV has too few records in %s: %d (expected at least %d)",
			path, rows, minRecords))
	}

	if len(requiredFields) > 0 {
		columns := make(map[string]bool, len(header))
		for _, h := range header {
			columns[strings.TrimSpace(h)] = true
		}
		var missing []string
		for _, name := range requiredFields {
			if !columns[name] {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			errs = append(errs, fmt.Sprintf(
				"CSV missing required columns in %s: %s",
				path, strings.Join(missing, ", ")))
		}
	}

	return errs, warns
}
