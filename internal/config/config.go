package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// defaultSolarBaseURL is the vendor solar API root. Overridable for
// tests and local mock servers.
const defaultSolarBaseURL = "https://solar.googleapis.com/v1"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Solar API configuration. The key is the server-held credential the
	// raster proxy exists to hide; it is injected here once and never
	// read from the environment mid-request. An empty key is permitted
	// at startup; proxy calls then fail with a configuration error.
	SolarAPIKey  string
	SolarBaseURL string
	SolarTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Lead event publishing.
	KafkaBrokers   []string
	KafkaLeadTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	solarTimeout, err := parseDurationEnv("SOLAR_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parseDurationEnv("MAPBOX_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SolarAPIKey:  os.Getenv("SOLAR_API_KEY"),
		SolarBaseURL: envOrDefault("SOLAR_BASE_URL", defaultSolarBaseURL),
		SolarTimeout: solarTimeout,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),

		KafkaBrokers:   parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaLeadTopic: envOrDefault("KAFKA_LEAD_TOPIC", "solar-leads"),
	}

	if cfg.SolarBaseURL == "" {
		return nil, errors.New("SOLAR_BASE_URL must not be empty")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaLeadTopic == "" {
		return nil, errors.New("KAFKA_LEAD_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
