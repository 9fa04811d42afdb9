package mapbox

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

const provider = "mapbox"

// DefaultBaseURL is the public Mapbox geocoding endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(token, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: cmp.Or(baseURL, DefaultBaseURL),
		metrics: metrics,
		logger:  logger,
	}
}

// Geocode forward-geocodes a free-text address.
func (c *Client) Geocode(ctx context.Context, q domain.GeocodeQuery) ([]domain.GeocodingResult, error) {
	address := strings.TrimSpace(q.Address)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(address))

	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(max(q.MaxResults, 1))},
	}
	if lang := language(q.Locale); lang != "" {
		params.Set("language", lang)
	}

	start := time.Now()
	results, err := c.doRequest(ctx, u+"?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "error").Inc()
		return nil, err
	case len(results) == 0:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "empty").Inc()
	default:
		c.metrics.GeocodeRequests.WithLabelValues(provider, "success").Inc()
	}

	c.logger.Debug("mapbox geocode", "address", address, "results", len(results))
	return results, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mapbox geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	results := make([]domain.GeocodingResult, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		if len(f.Center) != 2 {
			continue
		}
		results = append(results, domain.GeocodingResult{
			Lon:              f.Center[0],
			Lat:              f.Center[1],
			FormattedAddress: f.PlaceName,
			PlaceName:        f.Text,
			Confidence:       f.Relevance,
		})
	}
	return results, nil
}

// language maps a locale tag such as "tr_TR" to the ISO 639-1 code Mapbox expects.
func language(locale string) string {
	lang, _, _ := strings.Cut(locale, "_")
	lang, _, _ = strings.Cut(lang, "-")
	return strings.ToLower(lang)
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
