package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		token:      testToken,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func taksimQuery() domain.GeocodeQuery {
	return domain.GeocodeQuery{Address: " istanbul taksim meydanı", MaxResults: 1, Locale: "tr_TR"}
}

func TestClient_Geocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/istanbul taksim meydanı.json"), r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "tr", r.URL.Query().Get("language"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))

		resp := response{
			Features: []feature{
				{
					Center:    []float64{28.9869, 41.0370},
					PlaceName: "Taksim Meydanı, Beyoğlu, İstanbul, Türkiye",
					Text:      "Taksim Meydanı",
					Relevance: 0.95,
				},
			},
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), taksimQuery())
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, 41.0370, results[0].Lat)
	assert.Equal(t, 28.9869, results[0].Lon)
	assert.Equal(t, "Taksim Meydanı, Beyoğlu, İstanbul, Türkiye", results[0].FormattedAddress)
	assert.Equal(t, "Taksim Meydanı", results[0].PlaceName)
	assert.Equal(t, 0.95, results[0].Confidence)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "success")), 0)
}

func TestClient_Geocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		require.NoError(t, json.NewEncoder(w).Encode(response{Features: []feature{}}))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), taksimQuery())
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "empty")), 0)
}

func TestClient_Geocode_SkipsFeaturesWithoutCenter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"features":[{"place_name":"broken"},{"center":[29.0,41.0],"text":"ok"}]}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	results, err := c.Geocode(context.Background(), taksimQuery())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].PlaceName)
}

func TestClient_Geocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.Geocode(context.Background(), taksimQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues(provider, "error")), 0)
}

func TestClient_Geocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.Geocode(context.Background(), taksimQuery())
	require.Error(t, err)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "tr", language("tr_TR"))
	assert.Equal(t, "en", language("en-US"))
	assert.Equal(t, "de", language("DE"))
	assert.Empty(t, language(""))
}
