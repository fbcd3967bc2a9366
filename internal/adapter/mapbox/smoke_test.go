//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/observability"
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
	return NewClient(token, 10*time.Second, observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_ForwardGeocode_Landmark(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Breitscheidplatz", "Berlin")
	require.NoError(t, err)

	assert.InDelta(t, 52.50, result.Lat, 0.1, "lat should be near Berlin")
	assert.InDelta(t, 13.33, result.Lon, 0.1, "lon should be near Berlin")
	assert.Contains(t, result.FormattedAddress, "Berlin")
	assert.Greater(t, result.Confidence, 0.5)
}

func TestSmoke_ForwardGeocode_Country(t *testing.T) {
	c := smokeClient(t)

	result, err := c.ForwardGeocode(context.Background(), "Austria", "")
	require.NoError(t, err)

	assert.InDelta(t, 47.5, result.Lat, 1.5)
	assert.InDelta(t, 14.5, result.Lon, 2.0)
}

func TestSmoke_ForwardGeocode_LowRelevance(t *testing.T) {
	c := smokeClient(t)

	// Fuzzy matching may still return results for nonsense queries,
	// so only check that the response is handled without error.
	_, err := c.ForwardGeocode(context.Background(), "XYZNONEXISTENT99", "ZZ")
	require.NoError(t, err)
}

func TestSmoke_CachedGeocoder(t *testing.T) {
	c := smokeClient(t)
	cached := NewCachedGeocoder(c, 10, observability.NewMetricsForTesting())

	r1, err := cached.ForwardGeocode(context.Background(), "Stephansplatz", "Wien")
	require.NoError(t, err)
	assert.NotEmpty(t, r1.FormattedAddress)

	r2, err := cached.ForwardGeocode(context.Background(), "Stephansplatz", "Wien")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}
