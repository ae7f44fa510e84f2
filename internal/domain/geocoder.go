package domain

import (
	"context"
	"strings"
)

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Found reports whether the provider matched the query.
func (r GeocodingResult) Found() bool {
	return r.FormattedAddress != "" || r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-text place queries to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a place query to coordinates. A zero result with
	// a nil error means no match.
	ForwardGeocode(ctx context.Context, query string) (GeocodingResult, error)
}

// GeocodeQuery composes the "municipality, state, country" query sent to the
// geocoder. Empty parts are skipped.
func GeocodeQuery(municipality, state, country string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{municipality, state, country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// LocationKey is the geocoding cache key for a municipality/state pair. The
// pair is used literally, without case folding.
func LocationKey(municipality, state string) string {
	return municipality + "|" + state
}
