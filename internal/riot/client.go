// Package riot is a minimal Riot API client for champion mastery.
package riot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultBaseURL = "https://br1.api.riotgames.com"
	defaultTimeout = 30 * time.Second

	masteryEndpoint = "/lol/champion-mastery/v4/champion-masteries/by-puuid/"
	statusEndpoint  = "/lol/status/v4/platform-data"
)

var (
	// ErrNoAPIKey is returned by NewClient when the key is empty
	ErrNoAPIKey = errors.New("riot: API key cannot be empty")

	// ErrNoPUUID is returned when a player lookup has no PUUID
	ErrNoPUUID = errors.New("riot: PUUID cannot be empty")
)

// APIError is returned for any non-200 response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Sprintf("riot: API returned %d - check if your API key is valid", e.StatusCode)
	case http.StatusNotFound:
		return "riot: API returned 404 - player may not exist"
	}
	if e.Message != "" {
		return fmt.Sprintf("riot: API returned status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("riot: API returned status %d", e.StatusCode)
}

// Client is a Riot API client bound to one platform host and API key
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithTimeout sets a custom per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new Riot API client
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}

	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// ChampionMasteries fetches every champion mastery entry for a player.
// No pagination and no retry: one request per call.
func (c *Client) ChampionMasteries(ctx context.Context, puuid string) ([]ChampionMastery, error) {
	if puuid == "" {
		return nil, ErrNoPUUID
	}

	u := c.baseURL + masteryEndpoint + url.PathEscape(puuid) + "?api_key=" + url.QueryEscape(c.apiKey)

	var masteries []ChampionMastery
	if err := c.doRequest(ctx, u, &masteries); err != nil {
		return nil, err
	}
	return masteries, nil
}

// ValidateKey checks the client's key against the platform status endpoint.
// Returns:
//   - (true, nil) if the key is valid
//   - (false, nil) if the key is invalid (401/403)
//   - (false, error) if there was a network/server error (key validity unknown)
func (c *Client) ValidateKey(ctx context.Context) (bool, error) {
	err := c.doRequest(ctx, c.baseURL+statusEndpoint, nil)
	if err == nil {
		return true, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return false, nil
	}
	return false, err
}

// doRequest performs a GET and decodes the body into result when it is not nil
func (c *Client) doRequest(ctx context.Context, u string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Riot-Token", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Status struct {
				Message string `json:"message"`
			} `json:"status"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Status.Message
		}
		return apiErr
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// redact strips the API key from transport errors, which quote the URL
func redact(err error, apiKey string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = strings.ReplaceAll(urlErr.URL, apiKey, "REDACTED")
	}
	return err
}
