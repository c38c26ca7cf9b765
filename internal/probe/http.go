package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// requestIDHeader matches the header the service echoes back.
const requestIDHeader = "X-Request-ID"

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Get performs a GET request tagged with requestID.
func (c *HTTPClient) Get(ctx context.Context, rawURL, requestID string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if requestID != "" {
		req.Header.Set(requestIDHeader, requestID)
	}
	return c.client.Do(req)
}

// searchURL builds the /inactives URL for cfg.
func searchURL(cfg *Config) string {
	q := url.Values{}
	q.Set("gameworld", cfg.World)
	q.Set("inactive_for", strconv.Itoa(cfg.InactiveFor))
	q.Set("x", strconv.Itoa(cfg.X))
	q.Set("y", strconv.Itoa(cfg.Y))
	q.Set("min_distance", strconv.FormatFloat(cfg.MinDistance, 'f', -1, 64))
	q.Set("max_distance", strconv.FormatFloat(cfg.MaxDistance, 'f', -1, 64))
	return cfg.BaseURL + "/inactives?" + q.Encode()
}

// searchResult is the outcome of one search.
type searchResult struct {
	status    int
	requestID string
	envelope  Envelope
	took      time.Duration
}

// search sends one GET /inactives and decodes the envelope. Non-200 replies
// still decode so the caller can report the message.
func search(ctx context.Context, client *HTTPClient, cfg *Config, requestID string) (searchResult, error) {
	start := time.Now()
	resp, err := client.Get(ctx, searchURL(cfg), requestID)
	if err != nil {
		return searchResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return searchResult{}, fmt.Errorf("failed to read body: %w", err)
	}

	res := searchResult{
		status:    resp.StatusCode,
		requestID: resp.Header.Get(requestIDHeader),
		took:      time.Since(start),
	}
	if err := json.Unmarshal(body, &res.envelope); err != nil {
		return res, fmt.Errorf("%w: body is not an envelope: %v", ErrContract, err)
	}
	return res, nil
}
