// Package twitter reads an account's timeline from the Twitter API v2.
package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/couchcryptid/tweet-mapper-etl/internal/domain"
	"github.com/couchcryptid/tweet-mapper-etl/internal/observability"
)

const (
	// pageMin and pageMax bound max_results on the user tweets endpoint.
	pageMin = 5
	pageMax = 100
)

// Client fetches an account's own posts, excluding reposts and replies.
// It implements pipeline.PostSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	account    string
	maxPosts   int
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a timeline client authenticated with an app bearer token.
func NewClient(bearerToken, baseURL, account string, maxPosts int, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: bearerToken, TokenType: "Bearer"})
	base := &http.Client{Timeout: timeout}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = timeout

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		account:    strings.TrimPrefix(account, "@"),
		maxPosts:   maxPosts,
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchPosts returns up to maxPosts posts, newest first, in timeline order.
func (c *Client) FetchPosts(ctx context.Context) ([]domain.Post, error) {
	if c.account == "" {
		return nil, errors.New("twitter account is empty")
	}
	userID, err := c.lookupUserID(ctx)
	if err != nil {
		return nil, err
	}

	var (
		posts     []domain.Post
		nextToken string
	)
	for len(posts) < c.maxPosts {
		page, err := c.fetchPage(ctx, userID, nextToken, c.maxPosts-len(posts))
		if err != nil {
			return nil, err
		}
		posts = append(posts, page.Data...)
		c.logger.Debug("timeline page fetched", "account", c.account, "posts", len(page.Data), "total", len(posts))

		nextToken = page.Meta.NextToken
		if nextToken == "" || len(page.Data) == 0 {
			break
		}
	}

	if len(posts) > c.maxPosts {
		posts = posts[:c.maxPosts]
	}
	c.metrics.PostsFetched.Add(float64(len(posts)))
	c.logger.Info("timeline fetched", "account", c.account, "posts", len(posts))
	return posts, nil
}

func (c *Client) lookupUserID(ctx context.Context) (string, error) {
	var resp userResponse
	u := fmt.Sprintf("%s/2/users/by/username/%s", c.baseURL, url.PathEscape(c.account))
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return "", fmt.Errorf("lookup user %q: %w", c.account, err)
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("lookup user %q: %w", c.account, resp.apiError())
	}
	return resp.Data.ID, nil
}

func (c *Client) fetchPage(ctx context.Context, userID, token string, remaining int) (timelineResponse, error) {
	params := url.Values{
		"exclude":      {"retweets,replies"},
		"tweet.fields": {"created_at"},
		"max_results":  {strconv.Itoa(min(max(remaining, pageMin), pageMax))},
	}
	if token != "" {
		params.Set("pagination_token", token)
	}

	var resp timelineResponse
	u := fmt.Sprintf("%s/2/users/%s/tweets?%s", c.baseURL, url.PathEscape(userID), params.Encode())
	if err := c.getJSON(ctx, u, &resp); err != nil {
		return timelineResponse{}, fmt.Errorf("fetch timeline: %w", err)
	}
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		return timelineResponse{}, fmt.Errorf("fetch timeline: %w", resp.apiError())
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twitter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("twitter API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Twitter API v2 response types.

type apiErrors struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func (e apiErrors) apiError() error {
	if len(e.Errors) == 0 {
		return errors.New("empty response")
	}
	first := e.Errors[0]
	if first.Detail != "" {
		return fmt.Errorf("%s: %s", first.Title, first.Detail)
	}
	return errors.New(first.Title)
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
	apiErrors
}

type timelineResponse struct {
	Data []domain.Post `json:"data"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
	apiErrors
}
