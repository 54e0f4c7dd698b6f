package notifier

import (
	"bytes"
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

	"course-watch/internal/domain/entity"
)

// DefaultDiscordBaseURL is the public Discord webhook endpoint.
const DefaultDiscordBaseURL = "https://discord.com/api/webhooks"

// DiscordConfig contains configuration for Discord webhook delivery.
type DiscordConfig struct {
	// Enabled toggles real delivery; when false the NoOpClient is used.
	Enabled bool

	// BaseURL is the prefix webhooks are addressed under: {BaseURL}/{id}/{token}.
	BaseURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the outbound token bucket.
	// RequestsPerSecond <= 0 disables limiting.
	RequestsPerSecond float64
	Burst             int
}

// DefaultDiscordConfig returns the defaults used when the environment is silent.
// 0.5 req/s with a burst of 5 stays under Discord's 30 requests per minute.
func DefaultDiscordConfig() DiscordConfig {
	return DiscordConfig{
		Enabled:           true,
		BaseURL:           DefaultDiscordBaseURL,
		Timeout:           10 * time.Second,
		RequestsPerSecond: 0.5,
		Burst:             5,
	}
}

// DiscordClient posts messages to Discord webhooks.
type DiscordClient struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewDiscordClient creates a DiscordClient. A zero Timeout falls back to 10s.
func NewDiscordClient(config DiscordConfig) *DiscordClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := config.BaseURL
	if base == "" {
		base = DefaultDiscordBaseURL
	}
	return &DiscordClient{
		baseURL:     strings.TrimRight(base, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
	}
}

// DiscordWebhookPayload represents the JSON payload sent to a Discord webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

// DiscordEmbed represents a Discord embed message.
type DiscordEmbed struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Footer      *DiscordEmbedFooter `json:"footer,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

// DiscordEmbedFooter represents the footer of a Discord embed.
type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

// DiscordErrorResponse represents the error body returned by Discord.
type DiscordErrorResponse struct {
	Message    string  `json:"message"`
	Code       int     `json:"code"`
	RetryAfter float64 `json:"retry_after"` // seconds
}

const (
	maxContentLength     = 2000
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxFooterLength      = 2048
	truncationSuffix     = "..."

	// Discord blurple (#5865F2)
	discordBlueColor = 5793266
)

// WebhookURL renders the endpoint of identity under the client's base URL.
func (d *DiscordClient) WebhookURL(identity entity.DiscordWebhookIdentity) string {
	return d.baseURL + "/" + url.PathEscape(identity.DiscordID) + "/" + url.PathEscape(identity.Token)
}

// buildPayload renders msg as plain content plus at most one embed.
func buildPayload(msg entity.WebhookMessage) DiscordWebhookPayload {
	payload := DiscordWebhookPayload{
		Content: truncate(msg.Content, maxContentLength, truncationSuffix),
	}
	if msg.Title == "" && msg.Description == "" {
		return payload
	}

	embed := DiscordEmbed{
		Title:       truncate(msg.Title, maxTitleLength, truncationSuffix),
		Description: truncate(msg.Description, maxDescriptionLength, truncationSuffix),
		Color:       discordBlueColor,
	}
	if msg.Footer != "" {
		embed.Footer = &DiscordEmbedFooter{Text: truncate(msg.Footer, maxFooterLength, truncationSuffix)}
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	payload.Embeds = []DiscordEmbed{embed}
	return payload
}

// Send posts msg to the webhook once.
//
// Returns:
//   - nil: 2xx response
//   - *RateLimitError: 429
//   - *ClientError: any other 4xx (bad or deleted webhook)
//   - *ServerError: 5xx
//   - wrapped error: transport failure, timeout or cancelled context
func (d *DiscordClient) Send(ctx context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error {
	if err := d.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	jsonData, err := json.Marshal(buildPayload(msg))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL(identity), bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which contains the token.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("execute http request to webhook %s: %w", identity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		slog.DebugContext(ctx, "discord webhook delivered",
			slog.String("webhook", identity.String()),
			slog.Int("status", resp.StatusCode))
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			Message:    "Discord rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, body),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API client error %d: %s", resp.StatusCode, discordMessage(body)),
		}
	case resp.StatusCode >= 500:
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Discord API server error %d: %s", resp.StatusCode, discordMessage(body)),
		}
	default:
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
}

// discordMessage extracts the message field of an error body, falling back to
// the raw text.
func discordMessage(body []byte) string {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.Message != "" {
		return discordErr.Message
	}
	return truncate(strings.TrimSpace(string(body)), 200, truncationSuffix)
}

// extractRetryAfter reads retry_after from the JSON body, then the
// Retry-After header, defaulting to 5s.
func extractRetryAfter(resp *http.Response, body []byte) time.Duration {
	var discordErr DiscordErrorResponse
	if err := json.Unmarshal(body, &discordErr); err == nil && discordErr.RetryAfter > 0 {
		return time.Duration(discordErr.RetryAfter * float64(time.Second))
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}
