package geocache

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

// RateLimitedGeocoder paces requests to the wrapped geocoder. It only delays
// calls; it never retries them.
type RateLimitedGeocoder struct {
	inner   domain.Geocoder
	limiter *rate.Limiter
	metrics *observability.Metrics
}

// NewRateLimitedGeocoder allows perSecond requests per second with a burst of one.
func NewRateLimitedGeocoder(inner domain.Geocoder, perSecond float64, metrics *observability.Metrics) *RateLimitedGeocoder {
	return &RateLimitedGeocoder{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		metrics: metrics,
	}
}

func (r *RateLimitedGeocoder) Geocode(ctx context.Context, q domain.GeocodeQuery) ([]domain.GeocodingResult, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	r.metrics.GeocodeWaitDuration.Observe(time.Since(start).Seconds())
	return r.inner.Geocode(ctx, q)
}
