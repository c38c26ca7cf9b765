// Package provider talks to the Travian: Kingdoms external API, which serves
// map snapshots per world and hands out private API keys.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/okian/inactives/internal/domain/model"
	"github.com/okian/inactives/pkg/logger"
	"github.com/okian/inactives/pkg/metrics"
	"golang.org/x/time/rate"
)

// API actions and request constants.
const (
	ActionGetMapData    = "getMapData"
	ActionRequestAPIKey = "requestApiKey"

	// DefaultBaseURL is the external API endpoint; %s is the world name.
	DefaultBaseURL = "https://%s.kingdoms.com/api/external.php"
	// DefaultSiteURL is announced as the requesting site for new API keys.
	DefaultSiteURL = "https://www.reddit.com"
	// DateLayout is the date format the API expects for historical snapshots.
	DateLayout = "02.01.2006"

	defaultTimeout   = 30 * time.Second
	defaultRate      = 5
	siteNameLength   = 8
	maxResponseBytes = 64 << 20
)

// Client fetches map snapshots and API keys. It is safe for concurrent use.
type Client struct {
	baseURL    string
	siteURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	now        func() time.Time
	logger     logger.Logger
}

// New creates a Client with configuration options.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		siteURL:    DefaultSiteURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(defaultRate, defaultRate),
		retry:      DefaultRetryConfig(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.logger == nil {
		c.logger = logger.Get().Named("provider")
	}
	return c
}

// FetchSnapshot returns the map of world as of date, or the current map when
// date is nil. apiKey is required by the API for map data.
func (c *Client) FetchSnapshot(ctx context.Context, world, apiKey string, date *time.Time) (model.Snapshot, error) {
	params := url.Values{}
	params.Set("action", ActionGetMapData)
	params.Set("privateApiKey", apiKey)

	captured := c.now()
	if date != nil {
		params.Set("date", date.Format(DateLayout))
		captured = *date
	}

	body, err := c.get(ctx, world, ActionGetMapData, params)
	if err != nil {
		return model.Snapshot{}, err
	}

	raw, err := unwrapResponse(world, ActionGetMapData, body)
	if err != nil {
		return model.Snapshot{}, err
	}

	var data struct {
		Players *[]wirePlayer `json:"players"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return model.Snapshot{}, failure(world, ActionGetMapData, "decode map data: %v", err)
	}
	if data.Players == nil {
		return model.Snapshot{}, failure(world, ActionGetMapData, "API did not return MapData")
	}

	players, err := decodePlayers(world, *data.Players)
	if err != nil {
		return model.Snapshot{}, err
	}

	c.logger.Debug(ctx, "fetched snapshot",
		logger.String("world", world),
		logger.Int("players", len(players)),
		logger.String("capturedAt", captured.Format(DateLayout)),
	)
	metrics.UpdateSnapshotPlayers(snapshotAge(date), len(players))

	return model.Snapshot{World: world, CapturedAt: captured, Players: players}, nil
}

// ObtainAPIKey registers a throwaway site with the API and returns the
// private key issued for it.
func (c *Client) ObtainAPIKey(ctx context.Context, world string) (string, error) {
	site := randomSiteName()

	params := url.Values{}
	params.Set("action", ActionRequestAPIKey)
	params.Set("email", site+"@gmail.com")
	params.Set("siteName", site)
	params.Set("siteUrl", c.siteURL)
	params.Set("public", "false")

	body, err := c.get(ctx, world, ActionRequestAPIKey, params)
	if err != nil {
		return "", err
	}

	raw, err := unwrapResponse(world, ActionRequestAPIKey, body)
	if err != nil {
		return "", err
	}

	var data apiKeyData
	if err := json.Unmarshal(raw, &data); err != nil || data.PrivateAPIKey == "" {
		return "", failure(world, ActionRequestAPIKey, "API did not return a privateApiKey")
	}

	c.logger.Info(ctx, "obtained api key", logger.String("world", world), logger.String("siteName", site))
	return data.PrivateAPIKey, nil
}

// get performs a rate limited GET with retries on transient failures and
// returns the response body.
func (c *Client) get(ctx context.Context, world, action string, params url.Values) ([]byte, error) {
	endpoint := c.endpoint(world) + "?" + params.Encode()
	start := time.Now()

	onRetry := func(attempt int, err error) {
		metrics.RecordProviderRetry(action)
		c.logger.Warn(ctx, "retrying provider request",
			logger.String("world", world),
			logger.String("action", action),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
	}

	body, err := retryDo(ctx, c.retry, onRetry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("provider rate limit: %w", err)
		}
		return c.do(ctx, world, action, endpoint)
	})

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var pe *Error
		if !errors.As(err, &pe) {
			err = &Error{World: world, Action: action, Reason: "request failed", Err: err}
		}
	}
	metrics.RecordProviderRequest(action, outcome)
	metrics.RecordProviderLatency(action, float64(time.Since(start).Milliseconds()))
	return body, err
}

func (c *Client) do(ctx context.Context, world, action, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", action, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &transientError{err: fmt.Errorf("read %s response: %w", action, err)}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		err := fmt.Errorf("%s returned status %d", action, resp.StatusCode)
		if transientStatus(resp.StatusCode) {
			return nil, &transientError{err: err, statusCode: resp.StatusCode}
		}
		return nil, failure(world, action, "unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) endpoint(world string) string {
	if strings.Contains(c.baseURL, "%s") {
		return fmt.Sprintf(c.baseURL, world)
	}
	return c.baseURL
}

// unwrapResponse returns the "response" member of an API reply.
func unwrapResponse(world, action string, body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, failure(world, action, "response is not JSON: %v", err)
	}
	if !present(env.Response) {
		if env.Message != "" {
			return nil, failure(world, action, "no response data: %s", env.Message)
		}
		return nil, failure(world, action, "no response data")
	}
	return env.Response, nil
}

func snapshotAge(date *time.Time) string {
	if date == nil {
		return "recent"
	}
	return "aged"
}

func randomSiteName() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	b := make([]byte, siteNameLength)
	for i := range b {
		b[i] = letters[rand.IntN(len(letters))]
	}
	return string(b)
}
