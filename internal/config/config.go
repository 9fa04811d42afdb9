package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoder providers.
const (
	ProviderYandex = "yandex"
	ProviderMapbox = "mapbox"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	// Timeline source.
	TwitterAccount     string
	TwitterBearerToken string
	TwitterBaseURL     string
	MaxPosts           int

	// Geocoding.
	GeocoderProvider string
	GeocoderBaseURL  string
	YandexAPIKey     string
	MapboxToken      string
	GeocodeLocale    string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int
	GeocodeRateLimit float64

	AbbreviationsFile string
	Concurrency       int

	// Export.
	OutputDir      string
	OutputFile     string
	H3Resolution   int
	CheckpointPath string

	// Optional Kafka sink.
	KafkaBrokers   []string
	KafkaSinkTopic string
	BatchSize      int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODE_TIMEOUT", "10s"))
	if err != nil || geocodeTimeout <= 0 {
		return nil, errors.New("invalid GEOCODE_TIMEOUT")
	}

	maxPosts, err := parseInt("MAX_POSTS", 5000, 1, 1<<20)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseInt("GEOCODE_CACHE_SIZE", 1000, 0, 1<<20)
	if err != nil {
		return nil, err
	}
	concurrency, err := parseInt("CONCURRENCY", 1, 1, 64)
	if err != nil {
		return nil, err
	}
	h3Resolution, err := parseInt("H3_RESOLUTION", 0, 0, 15)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEOCODE_RATE_LIMIT", "0"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid GEOCODE_RATE_LIMIT")
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		TwitterAccount:     sharedcfg.EnvOrDefault("TWITTER_ACCOUNT", "140journos"),
		TwitterBearerToken: os.Getenv("TWITTER_BEARER_TOKEN"),
		TwitterBaseURL:     sharedcfg.EnvOrDefault("TWITTER_BASE_URL", "https://api.twitter.com"),
		MaxPosts:           maxPosts,

		GeocoderProvider: sharedcfg.EnvOrDefault("GEOCODER_PROVIDER", ProviderYandex),
		GeocoderBaseURL:  os.Getenv("GEOCODER_BASE_URL"),
		YandexAPIKey:     os.Getenv("YANDEX_API_KEY"),
		MapboxToken:      os.Getenv("MAPBOX_TOKEN"),
		GeocodeLocale:    sharedcfg.EnvOrDefault("GEOCODE_LOCALE", "tr_TR"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: cacheSize,
		GeocodeRateLimit: rateLimit,

		AbbreviationsFile: os.Getenv("ABBREVIATIONS_FILE"),
		Concurrency:       concurrency,

		OutputDir:      sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),
		OutputFile:     os.Getenv("OUTPUT_FILE"),
		H3Resolution:   h3Resolution,
		CheckpointPath: os.Getenv("CHECKPOINT_PATH"),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geocoded-tweets"),
		BatchSize:      batchSize,

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	switch cfg.GeocoderProvider {
	case ProviderYandex:
		if cfg.YandexAPIKey == "" {
			return nil, errors.New("GEOCODER_PROVIDER is yandex but YANDEX_API_KEY is not set")
		}
	case ProviderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER_PROVIDER is mapbox but MAPBOX_TOKEN is not set")
		}
	default:
		return nil, fmt.Errorf("unknown GEOCODER_PROVIDER %q", cfg.GeocoderProvider)
	}
	if cfg.SinkEnabled() && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ValidateTimeline reports whether the live timeline source can be built.
// Offline runs from a post file skip it.
func (c *Config) ValidateTimeline() error {
	if c.TwitterAccount == "" {
		return errors.New("TWITTER_ACCOUNT is required")
	}
	if c.TwitterBearerToken == "" {
		return errors.New("TWITTER_BEARER_TOKEN is required")
	}
	return nil
}

// SinkEnabled reports whether records are also produced to Kafka.
func (c *Config) SinkEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseInt(name string, def, lo, hi int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", name, lo, hi)
	}
	return n, nil
}
