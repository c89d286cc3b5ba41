package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/opendata-summary/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Version control lookups of the previous snapshot.
	GitRepoDir     string
	GitPreviousRev string
	GitTimeout     time.Duration

	// Schedule is a cron expression. Empty means a single run.
	Schedule        string
	ReportTitle     string
	MetricsTextfile string

	// Kafka publishing is enabled when brokers are configured.
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// KafkaEnabled reports whether results should be published to Kafka.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	gitTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GIT_TIMEOUT", "10s"))
	if err != nil || gitTimeout <= 0 {
		return nil, errors.New("invalid GIT_TIMEOUT")
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		GitRepoDir:     sharedcfg.EnvOrDefault("GIT_REPO_DIR", "."),
		GitPreviousRev: sharedcfg.EnvOrDefault("GIT_PREVIOUS_REV", "HEAD^"),
		GitTimeout:     gitTimeout,

		Schedule:        strings.TrimSpace(os.Getenv("SUMMARY_SCHEDULE")),
		ReportTitle:     sharedcfg.EnvOrDefault("REPORT_TITLE", domain.DefaultReportTitle),
		MetricsTextfile: os.Getenv("METRICS_TEXTFILE"),

		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "opendata-summaries"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); strings.TrimSpace(brokers) != "" {
		cfg.KafkaBrokers = sharedcfg.ParseBrokers(brokers)
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", cfg.LogFormat)
	}
	if cfg.KafkaEnabled() && cfg.KafkaSummaryTopic == "" {
		return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}
