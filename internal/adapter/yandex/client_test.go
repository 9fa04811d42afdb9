package yandex

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

const taksimResponse = `{
  "response": {
    "GeoObjectCollection": {
      "featureMember": [
        {
          "GeoObject": {
            "metaDataProperty": {
              "GeocoderMetaData": {
                "precision": "exact",
                "text": "Türkiye, İstanbul, Beyoğlu, Taksim Meydanı"
              }
            },
            "name": "Taksim Meydanı",
            "Point": {"pos": "28.985 41.037"}
          }
        }
      ]
    }
  }
}`

func testClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:     "test-key",
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func query() domain.GeocodeQuery {
	return domain.GeocodeQuery{Address: " istanbul taksim meydanı", MaxResults: 1, Locale: domain.DefaultLocale}
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("apikey"))
		assert.Equal(t, "istanbul taksim meydanı", q.Get("geocode"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "1", q.Get("results"))
		assert.Equal(t, "tr_TR", q.Get("lang"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(taksimResponse))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), query())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 41.037, results[0].Lat)
	assert.Equal(t, 28.985, results[0].Lon)
	assert.Equal(t, "Taksim Meydanı", results[0].PlaceName)
	assert.Equal(t, "Türkiye, İstanbul, Beyoğlu, Taksim Meydanı", results[0].FormattedAddress)
	assert.Equal(t, 1.0, results[0].Confidence)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "success")), 0)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[]}}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), query())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "empty")), 0)
}

func TestClient_Geocode_MalformedPosSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"GeoObjectCollection":{"featureMember":[
			{"GeoObject":{"name":"bad","Point":{"pos":"28.9"}}},
			{"GeoObject":{"name":"good","Point":{"pos":"29.0 41.0"}}}
		]}}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), query())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].PlaceName)
	assert.Zero(t, results[0].Confidence)
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"statusCode":403,"error":"Forbidden","message":"Invalid key"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Geocode(context.Background(), query())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "error")), 0)
}

func TestClient_Geocode_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Geocode(context.Background(), query())
	require.ErrorContains(t, err, "decode response")
}

func TestClient_Geocode_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(taksimResponse))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Geocode(ctx, query())
	require.Error(t, err)
}

func TestParsePos(t *testing.T) {
	tests := []struct {
		name    string
		pos     string
		lon     float64
		lat     float64
		wantErr bool
	}{
		{name: "valid", pos: "28.985 41.037", lon: 28.985, lat: 41.037},
		{name: "extra whitespace", pos: "  29  41 ", lon: 29, lat: 41},
		{name: "negative", pos: "-0.12 51.5", lon: -0.12, lat: 51.5},
		{name: "single field", pos: "28.985", wantErr: true},
		{name: "empty", pos: "", wantErr: true},
		{name: "non-numeric lon", pos: "east 41", wantErr: true},
		{name: "non-numeric lat", pos: "29 north", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lon, lat, err := parsePos(tt.pos)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lon, lon)
			assert.Equal(t, tt.lat, lat)
		})
	}
}
