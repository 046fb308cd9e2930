// Command collect runs the registry-driven data collection. Dataset selection
// is controlled by COLLECT_<DATASET_ID>=true environment variables; existing
// output files are skipped unless OVERWRITE=true. Each run writes
// data_collection_report.json and optionally publishes it to Kafka.
//
// The exit code is informational (always 0 on a completed run); use the
// status command for the strict exit-code scheme. An interrupt exits 130.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robertsoden/ontario-environmental-data/internal/adapter/cwfis"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/geohub"
	httpadapter "github.com/robertsoden/ontario-environmental-data/internal/adapter/http"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/inaturalist"
	kafkaadapter "github.com/robertsoden/ontario-environmental-data/internal/adapter/kafka"
	"github.com/robertsoden/ontario-environmental-data/internal/adapter/statcan"
	"github.com/robertsoden/ontario-environmental-data/internal/config"
	"github.com/robertsoden/ontario-environmental-data/internal/dataset"
	"github.com/robertsoden/ontario-environmental-data/internal/observability"
	"github.com/robertsoden/ontario-environmental-data/internal/pipeline"
	"github.com/robertsoden/ontario-environmental-data/internal/report"
	"github.com/robertsoden/ontario-environmental-data/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	specs := dataset.Registry(cfg.DataDir, newClients(cfg, logger, metrics))
	selected := dataset.SelectedIDs(specs)
	if len(selected) == 0 {
		printAvailable(specs)
		return
	}

	if cfg.MetricsAddr != "" {
		srv := httpadapter.NewServer(cfg.MetricsAddr, specs, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck // best-effort drain on exit
		}()
	}

	rep, interrupted := pipeline.New(specs, cfg.Overwrite, logger, metrics).Run(ctx, selected)

	reportPath := filepath.Join(cfg.DataDir, "data_collection_report.json")
	if err := report.WriteJSON(reportPath, rep); err != nil {
		logger.Error("failed to write collection report", "error", err)
	} else {
		logger.Info("collection report written", "path", reportPath, "verdict", rep.Verdict)
	}

	if cfg.KafkaEnabled && !interrupted {
		publishReport(cfg, logger, rep)
	}

	if interrupted {
		logger.Warn("collection interrupted")
		os.Exit(130)
	}
}

func printAvailable(specs []dataset.Spec) {
	fmt.Println("No datasets selected.")
	fmt.Println("Set COLLECT_<DATASET_ID>=true environment variables to select datasets.")
	fmt.Println()
	fmt.Println("Available datasets:")
	for _, s := range specs {
		state := "enabled"
		if !s.Enabled {
			state = "disabled"
		}
		collectable := " "
		if s.Collect != nil {
			collectable = "*"
		}
		fmt.Printf("  %s %-30s (%s)\n", collectable, s.ID, state)
	}
}

func publishReport(cfg *config.Config, logger *slog.Logger, rep *report.Report) {
	publisher := kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaReportTopic, logger)
	defer publisher.Close() //nolint:errcheck // best-effort close on exit

	publishCtx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := publisher.PublishReport(publishCtx, rep); err != nil {
		logger.Error("failed to publish collection report", "error", err)
	}
}

// newClients builds one source client per provider, each with its own rate
// limiter so clients never interfere with each other's pacing.
func newClients(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) dataset.Clients {
	requester := func(name string) *source.Requester {
		return source.NewRequester(name,
			source.NewRateLimiter(cfg.RateLimitRPM),
			logger, metrics,
			source.RequesterOpts{
				MaxRetries: cfg.MaxRetries,
				BaseDelay:  cfg.BaseDelay,
				HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
			})
	}

	return dataset.Clients{
		INaturalist: inaturalist.NewClient(requester("inaturalist"), logger),
		CWFIS:       cwfis.NewClient(requester("cwfis"), logger),
		GeoHub:      geohub.NewClient(requester("geohub"), logger),
		StatCan:     statcan.NewClient(requester("statcan"), logger),
	}
}
