package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Load policies for sources that fail extraction or cleaning.
const (
	LoadPolicyAbort    = "abort"
	LoadPolicyContinue = "continue"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Startup load.
	SourceFiles     []string
	CleanedDir      string // empty disables cleaned CSV export
	ZScoreThreshold float64
	LoadPolicy      string
	LoadWorkers     int
	SinkMaxAttempts int

	// Kafka export of cleaned observations.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	CacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	threshold, err := parsePositiveFloat("ZSCORE_THRESHOLD", 3)
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("LOAD_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	attempts, err := parsePositiveInt("SINK_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SourceFiles:     parseList(os.Getenv("SOURCE_FILES")),
		CleanedDir:      strings.TrimSpace(os.Getenv("CLEANED_DIR")),
		ZScoreThreshold: threshold,
		LoadPolicy:      strings.ToLower(sharedcfg.EnvOrDefault("LOAD_POLICY", LoadPolicyAbort)),
		LoadWorkers:     workers,
		SinkMaxAttempts: attempts,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "asv-observations"),

		CacheSize: cacheSize,
	}

	if len(cfg.SourceFiles) == 0 {
		return nil, errors.New("SOURCE_FILES is required")
	}
	if cfg.LoadPolicy != LoadPolicyAbort && cfg.LoadPolicy != LoadPolicyContinue {
		return nil, fmt.Errorf("invalid LOAD_POLICY %q: use %s or %s", cfg.LoadPolicy, LoadPolicyAbort, LoadPolicyContinue)
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func parseList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parsePositiveFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid %s %q: must be a positive number", key, s)
	}
	return f, nil
}
