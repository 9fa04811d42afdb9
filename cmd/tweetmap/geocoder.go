package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/geocache"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/tweet-mapper-etl/internal/adapter/yandex"
	"github.com/couchcryptid/tweet-mapper-etl/internal/config"
	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

// buildGeocoder returns the configured provider wrapped in the optional rate
// limiter and, outermost, the optional cache, so cache hits are never paced.
func buildGeocoder(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (domain.Geocoder, error) {
	var g domain.Geocoder
	switch cfg.GeocoderProvider {
	case config.ProviderYandex:
		g = yandex.NewClient(cfg.YandexAPIKey, cfg.GeocoderBaseURL, cfg.GeocodeTimeout, metrics, logger)
	case config.ProviderMapbox:
		g = mapbox.NewClient(cfg.MapboxToken, cfg.GeocoderBaseURL, cfg.GeocodeTimeout, metrics, logger)
	default:
		return nil, fmt.Errorf("unknown geocoder provider %q", cfg.GeocoderProvider)
	}

	if cfg.GeocodeRateLimit > 0 {
		g = geocache.NewRateLimitedGeocoder(g, cfg.GeocodeRateLimit, metrics)
	}
	if cfg.GeocodeCacheSize > 0 {
		g = geocache.NewCachedGeocoder(g, cfg.GeocodeCacheSize, metrics)
	}

	logger.Info("geocoder configured",
		"provider", cfg.GeocoderProvider,
		"locale", cfg.GeocodeLocale,
		"timeout", cfg.GeocodeTimeout,
		"cache_size", cfg.GeocodeCacheSize,
		"rate_limit", cfg.GeocodeRateLimit,
	)
	return g, nil
}
