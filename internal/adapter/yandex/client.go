// Package yandex implements domain.Geocoder on the Yandex Geocoder HTTP API.
package yandex

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

const provider = "yandex"

// DefaultBaseURL is the public Yandex geocoding endpoint.
const DefaultBaseURL = "https://geocode-maps.yandex.ru/1.x/"

// precisionConfidence maps GeocoderMetaData.precision onto a 0..1 score.
var precisionConfidence = map[string]float64{
	"exact":  1.0,
	"number": 0.9,
	"near":   0.8,
	"range":  0.7,
	"street": 0.6,
	"other":  0.3,
}

// Client implements domain.Geocoder using the Yandex Geocoder API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Yandex geocoding client. An empty baseURL selects
// DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
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
	params := url.Values{
		"apikey":  {c.apiKey},
		"geocode": {address},
		"format":  {"json"},
		"results": {strconv.Itoa(max(q.MaxResults, 1))},
	}
	if q.Locale != "" {
		params.Set("lang", q.Locale)
	}

	start := time.Now()
	results, err := c.doRequest(ctx, c.baseURL+"?"+params.Encode())
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

	c.logger.Debug("yandex geocode", "address", address, "results", len(results))
	return results, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yandex geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yandex API error: status %d: %s", resp.StatusCode, body)
	}

	var yr response
	if err := json.NewDecoder(resp.Body).Decode(&yr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	members := yr.Response.GeoObjectCollection.FeatureMember
	results := make([]domain.GeocodingResult, 0, len(members))
	for _, m := range members {
		obj := m.GeoObject
		lon, lat, err := parsePos(obj.Point.Pos)
		if err != nil {
			c.logger.Warn("skipping yandex feature", "name", obj.Name, "error", err)
			continue
		}
		meta := obj.MetaDataProperty.GeocoderMetaData
		results = append(results, domain.GeocodingResult{
			Lat:              lat,
			Lon:              lon,
			FormattedAddress: meta.Text,
			PlaceName:        obj.Name,
			Confidence:       precisionConfidence[meta.Precision],
		})
	}
	return results, nil
}

// parsePos splits a Yandex "lon lat" pair.
func parsePos(pos string) (lon, lat float64, err error) {
	fields := strings.Fields(pos)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed pos %q", pos)
	}
	if lon, err = strconv.ParseFloat(fields[0], 64); err != nil {
		return 0, 0, fmt.Errorf("parse longitude: %w", err)
	}
	if lat, err = strconv.ParseFloat(fields[1], 64); err != nil {
		return 0, 0, fmt.Errorf("parse latitude: %w", err)
	}
	return lon, lat, nil
}

// Yandex API response types.

type response struct {
	Response struct {
		GeoObjectCollection struct {
			FeatureMember []featureMember `json:"featureMember"`
		} `json:"GeoObjectCollection"`
	} `json:"response"`
}

type featureMember struct {
	GeoObject geoObject `json:"GeoObject"`
}

type geoObject struct {
	MetaDataProperty struct {
		GeocoderMetaData struct {
			Precision string `json:"precision"`
			Text      string `json:"text"`
		} `json:"GeocoderMetaData"`
	} `json:"metaDataProperty"`
	Name  string `json:"name"`
	Point struct {
		Pos string `json:"pos"`
	} `json:"Point"`
}
