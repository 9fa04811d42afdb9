package domain

import (
	"context"
	"strings"
)

// ResolutionStatus tags the outcome of resolving one address.
type ResolutionStatus string

const (
	StatusResolved     ResolutionStatus = "resolved"
	StatusNoResults    ResolutionStatus = "no_results"
	StatusRejected     ResolutionStatus = "rejected"
	StatusEmptyAddress ResolutionStatus = "empty_address"
)

// Resolution is the outcome of geocoding one address. Lat and Lon are only
// meaningful when Status is StatusResolved; for rejected results they keep
// the provider's values for diagnostics.
type Resolution struct {
	Status           ResolutionStatus `json:"status"`
	Lat              float64          `json:"lat"`
	Lon              float64          `json:"lng"`
	FormattedAddress string           `json:"formatted_address,omitempty"`
	Confidence       float64          `json:"confidence,omitempty"`
}

// Resolved reports whether the resolution carries usable coordinates.
func (r Resolution) Resolved() bool {
	return r.Status == StatusResolved
}

// Coordinates returns the resolved pair, or the (0, 0) sentinel when the
// address was not resolved.
func (r Resolution) Coordinates() (lat, lng float64) {
	if !r.Resolved() {
		return 0, 0
	}
	return r.Lat, r.Lon
}

// ResolveAddress geocodes address with a single request for one result in the
// given locale and applies the validity policy:
//
//   - a blank address is not sent to the geocoder (StatusEmptyAddress)
//   - no candidates gives StatusNoResults
//   - a candidate with a negative latitude or longitude gives StatusRejected
//
// Geocoder failures are returned as a *CollaboratorError and are never
// downgraded to an unresolved Resolution.
func ResolveAddress(ctx context.Context, address string, geocoder Geocoder, locale string) (Resolution, error) {
	if strings.TrimSpace(address) == "" {
		return Resolution{Status: StatusEmptyAddress}, nil
	}

	results, err := geocoder.Geocode(ctx, GeocodeQuery{
		Address:    address,
		MaxResults: 1,
		Locale:     locale,
	})
	if err != nil {
		return Resolution{}, NewCollaboratorError(CollaboratorGeocoder, err)
	}
	if len(results) == 0 {
		return Resolution{Status: StatusNoResults}, nil
	}

	first := results[0]
	res := Resolution{
		Status:           StatusResolved,
		Lat:              first.Lat,
		Lon:              first.Lon,
		FormattedAddress: first.FormattedAddress,
		Confidence:       first.Confidence,
	}
	// Every valid point in the feed's region has positive coordinates.
	if first.Lat < 0 || first.Lon < 0 {
		res.Status = StatusRejected
	}
	return res, nil
}
