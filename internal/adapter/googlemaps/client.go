// Package googlemaps implements domain.Geocoder on top of the Google Maps
// Geocoding API.
package googlemaps

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/painel-obra/internal/domain"
	"googlemaps.github.io/maps"
)

// Client is a Google Maps geocoder.
type Client struct {
	maps   *maps.Client
	region string
	logger *slog.Logger
}

// NewClient creates a Google Maps geocoding client. region biases matches
// towards one ccTLD ("br"); empty disables the bias. Extra options are passed
// to the underlying maps client.
func NewClient(apiKey, region string, timeout time.Duration, logger *slog.Logger, opts ...maps.ClientOption) (*Client, error) {
	base := []maps.ClientOption{
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	mc, err := maps.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &Client{maps: mc, region: region, logger: logger}, nil
}

// ForwardGeocode resolves query to the first matching result. ZERO_RESULTS
// is a miss, not an error.
func (c *Client) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	req := &maps.GeocodingRequest{
		Address:  query,
		Region:   c.region,
		Language: "pt-BR",
	}

	results, err := c.maps.Geocode(ctx, req)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			c.logger.Debug("google maps returned no results", "query", query)
			return domain.GeocodingResult{}, nil
		}
		return domain.GeocodingResult{}, fmt.Errorf("google maps geocode: %w", err)
	}
	if len(results) == 0 {
		return domain.GeocodingResult{}, nil
	}

	r := results[0]
	confidence := 1.0
	if r.PartialMatch {
		confidence = 0.5
	}
	return domain.GeocodingResult{
		Lat:              r.Geometry.Location.Lat,
		Lon:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		Confidence:       confidence,
	}, nil
}
