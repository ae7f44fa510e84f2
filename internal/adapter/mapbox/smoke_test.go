//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, "br", 10*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ForwardGeocode(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Feira de Santana, BA, Brasil")
	require.NoError(t, err)

	assert.InDelta(t, -12.27, result.Lat, 0.2, "lat should be near Feira de Santana")
	assert.InDelta(t, -38.97, result.Lon, 0.2, "lon should be near Feira de Santana")
	assert.Contains(t, result.FormattedAddress, "Feira de Santana")
	assert.Greater(t, result.Confidence, 0.5)
}

func TestSmoke_ForwardGeocode_Unknown(t *testing.T) {
	c := smokeClient(t)

	// Fuzzy matching may still return something; only the absence of an
	// error is asserted.
	_, err := c.ForwardGeocode(context.Background(), "XYZNONEXISTENT99, ZZ, Brasil")
	require.NoError(t, err)
}
