package googlemaps

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "br", 5*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)), maps.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/geocode/json", r.URL.Path)
		assert.Equal(t, "Juazeiro, BA, Brasil", r.URL.Query().Get("address"))
		assert.Equal(t, "br", r.URL.Query().Get("region"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Juazeiro - BA, Brasil",
				"geometry": {"location": {"lat": -9.4162, "lng": -40.5033}}
			}]
		}`))
	})

	result, err := c.ForwardGeocode(context.Background(), "Juazeiro, BA, Brasil")
	require.NoError(t, err)

	assert.InDelta(t, -9.4162, result.Lat, 1e-9)
	assert.InDelta(t, -40.5033, result.Lon, 1e-9)
	assert.Equal(t, "Juazeiro - BA, Brasil", result.FormattedAddress)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestClient_ForwardGeocode_PartialMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [{
				"formatted_address": "Bahia, Brasil",
				"partial_match": true,
				"geometry": {"location": {"lat": -12.58, "lng": -41.70}}
			}]
		}`))
	})

	result, err := c.ForwardGeocode(context.Background(), "Vila Inexistente, BA, Brasil")
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Confidence)
}

func TestClient_ForwardGeocode_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	result, err := c.ForwardGeocode(context.Background(), "Lugar Nenhum, XX, Brasil")
	require.NoError(t, err)
	assert.False(t, result.Found())
}

func TestClient_ForwardGeocode_Denied(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid.", "results": []}`))
	})

	_, err := c.ForwardGeocode(context.Background(), "Utinga, BA, Brasil")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient("", "br", time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}
