package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all collector settings, populated from environment variables.
type Config struct {
	DataDir   string
	LogLevel  string
	LogFormat string

	// Overwrite re-collects datasets whose output files already exist.
	Overwrite bool

	// Acquisition settings shared by all source clients.
	RateLimitRPM   int
	MaxRetries     int
	BaseDelay      time.Duration
	RequestTimeout time.Duration

	// Optional Kafka report publishing.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaReportTopic string

	// MetricsAddr, when set, serves /healthz, /metrics, and /statusz during
	// collection runs (e.g. ":9090").
	MetricsAddr string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	rateLimit, err := parsePositiveInt("RATE_LIMIT_RPM", 60)
	if err != nil {
		return nil, err
	}

	maxRetries, err := parsePositiveInt("MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}

	baseDelay, err := parseDuration("BASE_DELAY", time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parseDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		DataDir:   envOrDefault("DATA_DIR", "data"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
		Overwrite: strings.EqualFold(os.Getenv("OVERWRITE"), "true"),

		RateLimitRPM:   rateLimit,
		MaxRetries:     maxRetries,
		BaseDelay:      baseDelay,
		RequestTimeout: requestTimeout,

		KafkaEnabled:     len(brokers) > 0,
		KafkaBrokers:     brokers,
		KafkaReportTopic: envOrDefault("KAFKA_REPORT_TOPIC", "data-collection-reports"),

		MetricsAddr: os.Getenv("METRICS_ADDR"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR must not be empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q (must be a positive integer)", key, s)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q (must be a positive duration)", key, s)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
