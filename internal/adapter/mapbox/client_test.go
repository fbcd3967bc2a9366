package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string, metrics *observability.Metrics) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    metrics,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Bataclan, Paris.json", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, placeTypes, r.URL.Query().Get("types"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{2.3708, 48.8630},
					PlaceName: "Bataclan, 50 Boulevard Voltaire, 75011 Paris, France",
					Text:      "Bataclan",
					Relevance: 0.97,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	metrics := testMetrics()
	c := testClient(srv.URL, metrics)
	result, err := c.ForwardGeocode(context.Background(), "Bataclan", "Paris")
	require.NoError(t, err)

	assert.InDelta(t, 48.8630, result.Lat, 1e-9)
	assert.InDelta(t, 2.3708, result.Lon, 1e-9)
	assert.Equal(t, "Bataclan, 50 Boulevard Voltaire, 75011 Paris, France", result.FormattedAddress)
	assert.Equal(t, "Bataclan", result.PlaceName)
	assert.InDelta(t, 0.97, result.Confidence, 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("success")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.GeocodeAPIDuration))
}

func TestClient_ForwardGeocode_NoRegion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/Austria.json", r.URL.Path)
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, testMetrics()).ForwardGeocode(context.Background(), "Austria", "")
	require.NoError(t, err)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	metrics := testMetrics()
	result, err := testClient(srv.URL, metrics).ForwardGeocode(context.Background(), "NONEXISTENT", "XX")
	require.NoError(t, err)
	assert.Zero(t, result.Lat)
	assert.Empty(t, result.FormattedAddress)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("empty")), 0)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	metrics := testMetrics()
	c := testClient(srv.URL, metrics)
	c.token = "bad-token"

	_, err := c.ForwardGeocode(context.Background(), "Breitscheidplatz", "Berlin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeRequests.WithLabelValues("error")), 0)
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, testMetrics())
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.ForwardGeocode(context.Background(), "Stephansplatz", "Wien")
	require.Error(t, err)
}
