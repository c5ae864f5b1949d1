package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed   = 15158332 // 0xE74C3C
	colorGreen = 5763719  // 0x57F287

	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3

	// Discord rejects embed field values longer than this
	maxFieldValue = 1024
)

// WebhookPayload represents a Discord webhook message
type WebhookPayload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []Embed `json:"embeds,omitempty"`
}

// Embed represents a Discord embed
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Footer      *EmbedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField represents a field in a Discord embed
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter represents the footer of a Discord embed
type EmbedFooter struct {
	Text string `json:"text"`
}

// NewRunSucceededPayload reports a finished ETL run with the rows written per collection
func NewRunSucceededPayload(elapsed time.Duration, written map[string]int) WebhookPayload {
	fields := []EmbedField{{Name: "Elapsed", Value: formatDuration(elapsed), Inline: true}}

	collections := make([]string, 0, len(written))
	for c := range written {
		collections = append(collections, c)
	}
	sort.Strings(collections)
	for _, c := range collections {
		fields = append(fields, EmbedField{Name: c, Value: formatNumber(written[c]) + " rows", Inline: true})
	}

	return WebhookPayload{
		Embeds: []Embed{
			{
				Title:  "✅ ETL Job Succeeded",
				Color:  colorGreen,
				Fields: fields,
			},
		},
	}
}

// NewRunFailedPayload reports a failed ETL run with its cause
func NewRunFailedPayload(elapsed time.Duration, cause error) WebhookPayload {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	if len(msg) > maxFieldValue {
		msg = msg[:maxFieldValue-3] + "..."
	}

	return WebhookPayload{
		Content: "@here ETL job failed",
		Embeds: []Embed{
			{
				Title: "⛔ ETL Job Failed",
				Color: colorRed,
				Fields: []EmbedField{
					{Name: "Elapsed", Value: formatDuration(elapsed), Inline: true},
					{Name: "Error", Value: msg},
				},
				Footer: &EmbedFooter{
					Text: "Previous checkpoints and documents are left untouched",
				},
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

// NewWebhookClient creates a new WebhookClient
func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// RunSucceeded sends a run success notification
func (c *WebhookClient) RunSucceeded(ctx context.Context, elapsed time.Duration, written map[string]int) error {
	return c.sendPayload(ctx, NewRunSucceededPayload(elapsed, written))
}

// RunFailed sends a run failure notification
func (c *WebhookClient) RunFailed(ctx context.Context, elapsed time.Duration, cause error) error {
	return c.sendPayload(ctx, NewRunFailedPayload(elapsed, cause))
}

// sendPayload sends a webhook payload with retry on rate limiting
func (c *WebhookClient) sendPayload(ctx context.Context, payload WebhookPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		resp.Body.Close()

		// Discord returns 204 No Content
		if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
			return nil
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := time.Second
			if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil {
					waitDuration = time.Duration(seconds) * time.Second
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook request failed after %d retries", maxRetries)
}

// formatNumber formats a number with commas (e.g., 47832 -> "47,832")
func formatNumber(n int) string {
	if n < 1000 && n > -1000 {
		return strconv.Itoa(n)
	}

	s := strconv.Itoa(n)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	var result bytes.Buffer
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return sign + result.String()
}

// formatDuration formats a duration as "1h 2m 3s", dropping leading zero units
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
