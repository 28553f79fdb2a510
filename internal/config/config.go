package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream data API.
	DataAPIURL              string
	DataAPITimeout          time.Duration
	WeatherCacheSize        int
	MetadataTTL             time.Duration
	MetadataRefreshInterval time.Duration

	// Selection behavior.
	InitialZoom    int
	MaxQueryCells  int
	BinCatalogPath string
	SuppressCalm   bool

	// Optional summary publishing.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSummaryTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiTimeout, err := parseDuration("DATA_API_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	metadataTTL, err := parseDuration("METADATA_TTL", "20m")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("METADATA_REFRESH_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	if refreshInterval < time.Minute {
		return nil, errors.New("METADATA_REFRESH_INTERVAL must be at least 1m")
	}
	// A refresh inside the TTL would be answered from the metadata cache.
	if metadataTTL >= refreshInterval {
		return nil, errors.New("METADATA_TTL must be shorter than METADATA_REFRESH_INTERVAL")
	}

	initialZoom, err := parseInt("INITIAL_ZOOM", 6, 0, 22)
	if err != nil {
		return nil, err
	}
	maxCells, err := parseInt("MAX_QUERY_CELLS", 100, 1, 10000)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("WEATHER_CACHE_SIZE", 256, 0, 1_000_000)
	if err != nil {
		return nil, err
	}
	suppressCalm, err := parseBool("SUPPRESS_CALM", true)
	if err != nil {
		return nil, err
	}
	kafkaEnabled, err := parseBool("KAFKA_ENABLED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataAPIURL:              os.Getenv("DATA_API_URL"),
		DataAPITimeout:          apiTimeout,
		WeatherCacheSize:        cacheSize,
		MetadataTTL:             metadataTTL,
		MetadataRefreshInterval: refreshInterval,

		InitialZoom:    initialZoom,
		MaxQueryCells:  maxCells,
		BinCatalogPath: os.Getenv("BIN_CATALOG_PATH"),
		SuppressCalm:   suppressCalm,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSummaryTopic: sharedcfg.EnvOrDefault("KAFKA_SUMMARY_TOPIC", "area-summaries"),
	}

	if cfg.DataAPIURL == "" {
		return nil, errors.New("DATA_API_URL is required")
	}
	if u, err := url.Parse(cfg.DataAPIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid DATA_API_URL %q", cfg.DataAPIURL)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSummaryTopic == "" {
			return nil, errors.New("KAFKA_SUMMARY_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, lo, hi int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, lo, hi)
	}
	return n, nil
}

func parseBool(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: must be true or false", key)
	}
	return b, nil
}
