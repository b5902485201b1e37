// Package config reads service settings from environment variables.
// Run-specific inputs (paths, filters, seed) come from command-line
// flags; the environment carries the ambient surface shared by every run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel  string
	LogFormat string

	// BatchSize is the number of future blocks per pipeline batch;
	// Workers bounds the per-batch fan-out.
	BatchSize int
	Workers   int

	// Kafka sink, enabled when brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	// MetricsAddr serves /healthz, /progress, /metrics when non-empty.
	MetricsAddr string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	batchSize, err := parsePositiveInt("BATCH_SIZE", 10000)
	if err != nil {
		return nil, err
	}
	workers, err := parsePositiveInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		LogLevel:       envOrDefault("LOG_LEVEL", "info"),
		LogFormat:      envOrDefault("LOG_FORMAT", "json"),
		BatchSize:      batchSize,
		Workers:        workers,
		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "disaggregated-precip-hourly"),
		KafkaEnabled:   kafkaEnabled,
		MetricsAddr:    os.Getenv("METRICS_ADDR"),
	}

	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when the kafka sink is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: want a positive integer", key, s)
	}
	return n, nil
}
