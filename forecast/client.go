// Package forecast is a client for the forecasting platform API and the
// tools that expose it to agents. Read endpoints are public; submitting a
// forecast point authenticates with a bearer token obtained per request.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hivecast/hivecast/logging"
)

const defaultTimeout = 30 * time.Second

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, without a trailing slash.
	BaseURL string

	// UserID identifies the forecasting account for read endpoints.
	UserID int

	// Username and Password authenticate forecast submissions.
	Username string
	Password string

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client

	// Logger for request outcomes. Nil selects logging.NoOpLogger.
	Logger logging.Logger
}

// Client talks to the forecasting platform. Safe for concurrent use.
type Client struct {
	baseURL  string
	userID   int
	username string
	password string
	http     *http.Client
	logger   logging.Logger
}

// NewClient builds a Client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("forecast: base URL is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		userID:   opts.UserID,
		username: opts.Username,
		password: opts.Password,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// SubmitRequest is one forecast point to record.
type SubmitRequest struct {
	ForecastID    int     `json:"forecast_id"`
	PointForecast float64 `json:"point_forecast"`
	Reason        string  `json:"reason"`
	UserID        int     `json:"user_id"`
}

// ListOpen returns the forecasts that are stale or new for this user, as
// the raw JSON the platform returned.
func (c *Client) ListOpen(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("forecasts/stale-and-new/%d", c.userID))
}

// Get returns one forecast's data.
func (c *Client) Get(ctx context.Context, forecastID int) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("forecasts/%d", forecastID))
}

// Points returns the existing forecast points this user recorded for a
// forecast.
func (c *Client) Points(ctx context.Context, forecastID int) (json.RawMessage, error) {
	return c.post(ctx, "forecast-points/user", map[string]any{
		"forecast_id": forecastID,
		"user_id":     c.userID,
	}, "")
}

// PointsToday returns the points this user recorded today.
func (c *Client) PointsToday(ctx context.Context) (json.RawMessage, error) {
	return c.get(ctx, fmt.Sprintf("forecast-points/today/%d", c.userID))
}

// Submit records a new forecast point. PointForecast must be a probability
// in [0, 1]. The request is authenticated with a fresh bearer token.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (json.RawMessage, error) {
	if req.PointForecast < 0 || req.PointForecast > 1 {
		return nil, fmt.Errorf("forecast: point forecast %v out of range [0, 1]", req.PointForecast)
	}

	token, err := c.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("forecast: login: %w", err)
	}
	return c.post(ctx, "api/forecast-points", req, token)
}

// login exchanges the configured credentials for a bearer token.
func (c *Client) login(ctx context.Context) (string, error) {
	body, err := c.post(ctx, "users/login", map[string]string{
		"username": c.username,
		"password": c.password,
	}, "")
	if err != nil {
		return "", err
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("login response missing token")
	}
	return resp.Token, nil
}

func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) post(ctx context.Context, path string, payload any, token string) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("forecast: read response: %w", err)
	}

	c.logger.Debug("api request", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("forecast: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.RawMessage(body), nil
}
