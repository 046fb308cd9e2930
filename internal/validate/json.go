package validate

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// sampledRecords bounds the required-field check on observation lists.
// Only the first N records are inspected, so missing fields deeper in large
// files surface as warnings at most. This is a deliberate cost cap, not full
// certification of every record.
const sampledRecords = 10

// validateObservations checks a JSON file holding observation records. The
// accepted shapes are a bare list, an object with an "observations" key, an
// object with a "features" key, or a single object (treated as one record).
func validateObservations(path string, minRecords int, requiredFields []string) (errs, warns []string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return []string{fmt.Sprintf("failed to read %s: %v", path, err)}, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{fmt.Sprintf("invalid JSON in %s: %v", path, err)}, nil
	}

	observations, err := observationList(raw)
	if err != nil {
		return []string{fmt.Sprintf("%v in %s", err, path)}, nil
	}

	if len(observations) < minRecords {
		errs = append(errs, fmt.Sprintf(
			"too few observations in %s: %d (expected at least %d)",
			path, len(observations), minRecords))
	}

	for i, obs := range observations {
		if i >= sampledRecords {
			break
		}
		record, ok := obs.(map[string]any)
		if !ok {
			warns = append(warns, fmt.Sprintf("observation %d is not an object in %s", i, path))
			continue
		}
		if missing := missingFields(record, requiredFields); len(missing) > 0 {
			warns = append(warns, fmt.Sprintf(
				"observation %d missing fields in %s: %s",
				i, path, strings.Join(missing, ", ")))
		}
	}

	return errs, warns
}

func observationList(raw any) ([]any, error) {
	switch v := raw.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if obs, ok := v["observations"].([]any); ok {
			return obs, nil
		}
		if feats, ok := v["features"].([]any); ok {
			return feats, nil
		}
		// A single observation object.
		return []any{v}, nil
	default:
		return nil, fmt.Errorf("JSON data is not a list or object (%T)", raw)
	}
}

func missingFields(record map[string]any, required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := record[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
