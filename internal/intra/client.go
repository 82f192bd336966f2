package intra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goodtune/logtime/internal/metrics"
	"github.com/goodtune/logtime/internal/usage"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultAPIURL is the public 42 intra API.
	DefaultAPIURL = "https://api.intra.42.fr"

	// DefaultPageSize is the number of records requested per page.
	DefaultPageSize = 100

	// DefaultTimeout bounds every upstream request.
	DefaultTimeout = 10 * time.Second

	// rangeLayout is the timestamp format the API expects in range filters.
	rangeLayout = "2006-01-02T15:04:05Z"

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 4096
)

// Config holds intra client configuration
type Config struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	PageSize     int
	Timeout      time.Duration
}

// APIError is a non-2xx response from the upstream API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s request failed: %d %s", e.Endpoint, e.StatusCode, e.Body)
}

// Unwrap reports rejected or expired credentials as usage.ErrUnauthorized.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || strings.Contains(strings.ToLower(e.Body), "expired") {
		return usage.ErrUnauthorized
	}
	return nil
}

// Me is the subset of the /v2/me profile the service keeps.
type Me struct {
	ID       int64   `json:"id"`
	Login    string  `json:"login"`
	Location *string `json:"location"`
}

// LocationLabel returns the current presence label, or "" when absent.
func (m *Me) LocationLabel() string {
	if m.Location == nil {
		return ""
	}
	return *m.Location
}

// Client talks to the 42 intra REST API.
type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
	logger   zerolog.Logger
}

// NewClient creates a new API client
func NewClient(config Config, logger zerolog.Logger) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.PageSize <= 0 {
		config.PageSize = DefaultPageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = config.Timeout

	return &Client{
		baseURL:  strings.TrimRight(config.APIURL, "/"),
		pageSize: config.PageSize,
		http:     httpClient,
		logger:   logger.With().Str("component", "intra").Logger(),
	}
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// FetchLocations returns every location record of userID whose begin_at falls
// in [begin, end], following pagination until an empty or short page.
func (c *Client) FetchLocations(ctx context.Context, userID int64, token string, begin, end time.Time) ([]usage.SessionRecord, error) {
	path := fmt.Sprintf("/v2/users/%d/locations", userID)
	rangeParam := begin.UTC().Format(rangeLayout) + "," + end.UTC().Format(rangeLayout)

	all := []usage.SessionRecord{}
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page[size]", strconv.Itoa(c.pageSize))
		params.Set("page[number]", strconv.Itoa(page))
		params.Set("range[begin_at]", rangeParam)

		var batch []usage.SessionRecord
		if err := c.get(ctx, "locations", path, params, token, &batch); err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)
		if len(batch) < c.pageSize {
			break
		}
	}

	c.logger.Debug().
		Int64("user_id", userID).
		Int("records", len(all)).
		Msg("Fetched locations")

	return all, nil
}

// FetchLocationStats returns the upstream per-day totals for userID. Values
// are left undecoded; see usage.ParseDuration.
func (c *Client) FetchLocationStats(ctx context.Context, userID int64, token string, begin, end time.Time) (map[string]any, error) {
	path := fmt.Sprintf("/v2/users/%d/locations_stats", userID)
	params := url.Values{}
	params.Set("begin_at", begin.UTC().Format(rangeLayout))
	params.Set("end_at", end.UTC().Format(rangeLayout))

	stats := map[string]any{}
	if err := c.get(ctx, "locations_stats", path, params, token, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// Me returns the profile that owns token.
func (c *Client) Me(ctx context.Context, token string) (*Me, error) {
	var me Me
	if err := c.get(ctx, "me", "/v2/me", nil, token, &me); err != nil {
		return nil, err
	}
	if me.ID == 0 || me.Login == "" {
		return nil, fmt.Errorf("incomplete profile in /v2/me response")
	}
	return &me, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, token string, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Bool("unauthorized", errors.Is(apiErr, usage.ErrUnauthorized)).
			Msg("Upstream request rejected")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	return nil
}
