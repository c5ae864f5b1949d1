// Package ddragon fetches static game data from Data Dragon.
package ddragon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	defaultBaseURL = "https://ddragon.leagueoflegends.com"
	defaultLocale  = "pt_BR"
	defaultTimeout = 30 * time.Second
)

// ErrNoVersion is returned when versions.json lists nothing
var ErrNoVersion = errors.New("ddragon: no versions available")

// StatusError is returned for any non-200 response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ddragon: %s returned status %d", e.URL, e.StatusCode)
}

// Client is a Data Dragon client
type Client struct {
	httpClient *http.Client
	baseURL    string
	locale     string
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL sets a custom base URL (useful for testing)
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithLocale sets the locale used for champion and item data
func WithLocale(locale string) Option {
	return func(c *Client) {
		c.locale = locale
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Data Dragon client with the given options
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
		locale:  defaultLocale,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LatestVersion returns the first entry of versions.json, which is the
// current patch.
func (c *Client) LatestVersion(ctx context.Context) (string, error) {
	var versions []string
	if err := c.get(ctx, c.baseURL+"/api/versions.json", &versions); err != nil {
		return "", fmt.Errorf("failed to fetch versions: %w", err)
	}
	if len(versions) == 0 || versions[0] == "" {
		return "", ErrNoVersion
	}
	return versions[0], nil
}

// Champions returns champion.json for a version, keyed by champion ID
// (e.g. "Aatrox").
func (c *Client) Champions(ctx context.Context, version string) (map[string]Champion, error) {
	if version == "" {
		return nil, ErrNoVersion
	}
	var file championFile
	if err := c.get(ctx, c.dataURL(version, "champion.json"), &file); err != nil {
		return nil, fmt.Errorf("failed to fetch champions: %w", err)
	}
	return file.Data, nil
}

// Items returns item.json for a version, keyed by item ID
func (c *Client) Items(ctx context.Context, version string) (map[string]Item, error) {
	if version == "" {
		return nil, ErrNoVersion
	}
	var file itemFile
	if err := c.get(ctx, c.dataURL(version, "item.json"), &file); err != nil {
		return nil, fmt.Errorf("failed to fetch items: %w", err)
	}
	return file.Data, nil
}

func (c *Client) dataURL(version, file string) string {
	return fmt.Sprintf("%s/cdn/%s/data/%s/%s", c.baseURL, version, c.locale, file)
}

func (c *Client) get(ctx context.Context, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return nil
}
