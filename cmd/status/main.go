// Command status reports which expected data files are present on disk and
// whether they pass validation. It prints a per-category summary, writes
// data_status.json next to the data, and exits 0 when everything is healthy,
// 1 when any dataset is missing or invalid, and 2 when only warnings were
// found.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/robertsoden/ontario-environmental-data/internal/config"
	"github.com/robertsoden/ontario-environmental-data/internal/dataset"
	"github.com/robertsoden/ontario-environmental-data/internal/observability"
	"github.com/robertsoden/ontario-environmental-data/internal/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	// Status only reads files; no source clients are needed.
	specs := dataset.Registry(cfg.DataDir, dataset.Clients{})
	st := report.BuildStatus(specs)

	printStatus(specs, st)

	statusPath := filepath.Join(cfg.DataDir, "data_status.json")
	if err := report.WriteJSON(statusPath, st); err != nil {
		logger.Error("failed to write status report", "error", err)
		os.Exit(2)
	}
	logger.Info("status report written", "path", statusPath, "verdict", st.Verdict)

	os.Exit(report.ExitCode(st.Verdict))
}

// printStatus renders the human-readable console view, grouped by category.
func printStatus(specs []dataset.Spec, st *report.Status) {
	fmt.Println("Ontario Environmental Data — status")
	fmt.Println()

	available := make(map[string]report.FileStatus, len(st.Available))
	for _, f := range st.Available {
		available[f.Name] = f
	}
	missing := make(map[string]report.MissingFile, len(st.Missing))
	for _, m := range st.Missing {
		missing[m.Name] = m
	}

	for _, category := range dataset.Categories {
		count, ok := st.Summary[category]
		if !ok {
			continue
		}
		fmt.Printf("%s (%d/%d available)\n", category, count.Available, count.Total)
		for _, spec := range specs {
			if spec.Category != category || !spec.Enabled {
				continue
			}
			if f, ok := available[spec.ID]; ok {
				mark := "OK"
				switch {
				case !f.ValidationSuccess:
					mark = "INVALID"
				case len(f.ValidationWarnings) > 0:
					mark = "WARN"
				}
				fmt.Printf("  [%-7s] %-30s %8s  %s\n", mark, spec.ID, f.SizeHuman, f.Modified.Format("2006-01-02"))
				continue
			}
			if m, ok := missing[spec.ID]; ok {
				fmt.Printf("  [%-7s] %-30s %s\n", "MISSING", spec.ID, m.Description)
			}
		}
		fmt.Println()
	}

	if len(st.ValidationErrors) > 0 {
		fmt.Println("Validation errors:")
		for _, e := range st.ValidationErrors {
			fmt.Printf("  - %s\n", e)
		}
		fmt.Println()
	}
	if len(st.ValidationWarnings) > 0 {
		fmt.Println("Validation warnings:")
		for _, w := range st.ValidationWarnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	fmt.Printf("Verdict: %s\n", st.Verdict)
}
