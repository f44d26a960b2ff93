package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// DefaultDatasetURL is the merged FAO dataset published with the visualization project.
const DefaultDatasetURL = "https://raw.githubusercontent.com/com-480-data-visualization/com480-project-colocaviz/refs/heads/main/data/merged_data.csv"

// Config holds all service settings, populated from environment variables.
type Config struct {
	DatasetURL    string
	FoodCarbonURL string
	FoodWaterURL  string
	FetchTimeout  time.Duration

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DefaultYear       int
	DefaultElement    string
	SnapshotCacheSize int

	// Persistent body cache; disabled when DatasetCachePath is empty.
	DatasetCachePath string
	DatasetCacheTTL  time.Duration

	// Snapshot publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cacheTTL, err := parsePositiveDuration("DATASET_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}

	defaultYear, err := parseInt("DEFAULT_YEAR", 2023)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseInt("SNAPSHOT_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatasetURL:    sharedcfg.EnvOrDefault("DATASET_URL", DefaultDatasetURL),
		FoodCarbonURL: os.Getenv("FOOD_CARBON_URL"),
		FoodWaterURL:  os.Getenv("FOOD_WATER_URL"),
		FetchTimeout:  fetchTimeout,

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DefaultYear:       defaultYear,
		DefaultElement:    sharedcfg.EnvOrDefault("DEFAULT_ELEMENT", "area harvested"),
		SnapshotCacheSize: cacheSize,

		DatasetCachePath: os.Getenv("DATASET_CACHE_PATH"),
		DatasetCacheTTL:  cacheTTL,

		KafkaBrokers:       sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "styled-map-snapshots"),
	}

	if cfg.DatasetURL == "" {
		return nil, errors.New("DATASET_URL is required")
	}
	if (cfg.FoodCarbonURL == "") != (cfg.FoodWaterURL == "") {
		return nil, errors.New("FOOD_CARBON_URL and FOOD_WATER_URL must be set together")
	}
	if cfg.DefaultYear < 1960 || cfg.DefaultYear > 2030 {
		return nil, fmt.Errorf("invalid DEFAULT_YEAR %d: must be within 1960-2030", cfg.DefaultYear)
	}
	if cfg.SnapshotCacheSize <= 0 {
		return nil, errors.New("invalid SNAPSHOT_CACHE_SIZE: must be positive")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaSnapshotTopic == "" {
		return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// FoodsEnabled reports whether both footprint trees are configured.
func (c *Config) FoodsEnabled() bool {
	return c.FoodCarbonURL != "" && c.FoodWaterURL != ""
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

