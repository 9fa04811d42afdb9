package domain

import "context"

// DefaultLocale is the locale tag sent to geocoders for the Turkish feed.
const DefaultLocale = "tr_TR"

// GeocodeQuery is a forward-geocoding request.
type GeocodeQuery struct {
	Address    string
	MaxResults int
	Locale     string // e.g. "tr_TR"
}

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // provider-specific; only its presence matters here
}

// Geocoder resolves free-text addresses to ranked candidate points.
type Geocoder interface {
	// Geocode returns up to q.MaxResults candidates, best first. An address the
	// provider cannot place yields an empty slice and a nil error.
	Geocode(ctx context.Context, q GeocodeQuery) ([]GeocodingResult, error)
}
