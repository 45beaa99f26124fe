package discord

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	json "github.com/goccy/go-json"
)

const (
	// Colors for Discord embeds
	colorRed = 15158332 // 0xE74C3C

	defaultWebhookTimeout = 10 * time.Second

	// Max retries for rate limiting
	maxRetries = 3
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

type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedFooter struct {
	Text string `json:"text"`
}

// KeyRejected describes the state of the sampler when the API refused its key
type KeyRejected struct {
	Reason  string
	Shard   string
	APIKey  string
	Tracked int
	Runtime time.Duration
	At      time.Time
}

// NewKeyRejectedPayload creates a payload for an API key rejection alert
func NewKeyRejectedPayload(k KeyRejected) WebhookPayload {
	return WebhookPayload{
		Content: "@here PUBG API key rejected",
		Embeds: []Embed{
			{
				Title:       "🔑 API Key Rejected",
				Description: k.Reason,
				Color:       colorRed,
				Fields: []EmbedField{
					{
						Name:   "Matches Tracked",
						Value:  humanize.Comma(int64(k.Tracked)),
						Inline: true,
					},
					{
						Name:   "Runtime",
						Value:  formatDuration(k.Runtime),
						Inline: true,
					},
					{
						Name:   "Shard",
						Value:  k.Shard,
						Inline: true,
					},
					{
						Name:   "Key",
						Value:  maskAPIKey(k.APIKey),
						Inline: true,
					},
				},
				Footer: &EmbedFooter{
					Text: "Sampling continues with the fallback delay until PUBG_API_KEY is replaced",
				},
				Timestamp: k.At.UTC().Format(time.RFC3339),
			},
		},
	}
}

// WebhookClient sends notifications to Discord webhooks
type WebhookClient struct {
	webhookURL string
	httpClient *http.Client
}

func NewWebhookClient(webhookURL string) *WebhookClient {
	return &WebhookClient{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// SendKeyRejected posts a key rejection alert
func (c *WebhookClient) SendKeyRejected(ctx context.Context, k KeyRejected) error {
	return c.sendPayload(ctx, NewKeyRejectedPayload(k))
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

// formatDuration formats a duration as "Xh Ym" (e.g., 18h 32m)
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// maskAPIKey keeps the first and last few characters of a key
func maskAPIKey(key string) string {
	if len(key) <= 10 {
		return "****"
	}
	return key[:5] + "..." + key[len(key)-4:]
}
