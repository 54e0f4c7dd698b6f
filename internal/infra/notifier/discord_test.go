package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"course-watch/internal/domain/entity"
)

var testIdentity = entity.DiscordWebhookIdentity{DiscordID: "123456789", Token: "secret-token"}

func newTestClient(baseURL string) *DiscordClient {
	return NewDiscordClient(DiscordConfig{
		Enabled: true,
		BaseURL: baseURL,
		Timeout: 2 * time.Second,
	})
}

func TestDiscordClient_WebhookURL(t *testing.T) {
	client := newTestClient("https://discord.com/api/webhooks/")
	assert.Equal(t, "https://discord.com/api/webhooks/123456789/secret-token", client.WebhookURL(testIdentity))
}

func TestBuildPayload(t *testing.T) {
	t.Run("TC-1: content only", func(t *testing.T) {
		payload := buildPayload(entity.WebhookMessage{Content: "hello"})
		assert.Equal(t, "hello", payload.Content)
		assert.Empty(t, payload.Embeds)
	})

	t.Run("TC-2: embed with footer and timestamp", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		payload := buildPayload(entity.WebhookMessage{
			Content:     "Schedule updated",
			Title:       "Computer Science",
			Description: "2 created",
			Footer:      "course-watch",
			Timestamp:   ts,
		})
		require.Len(t, payload.Embeds, 1)
		embed := payload.Embeds[0]
		assert.Equal(t, "Computer Science", embed.Title)
		assert.Equal(t, "2 created", embed.Description)
		assert.Equal(t, discordBlueColor, embed.Color)
		require.NotNil(t, embed.Footer)
		assert.Equal(t, "course-watch", embed.Footer.Text)
		assert.Equal(t, "2026-03-01T12:00:00Z", embed.Timestamp)
	})

	t.Run("TC-3: long fields truncated", func(t *testing.T) {
		payload := buildPayload(entity.WebhookMessage{
			Content: strings.Repeat("c", 2500),
			Title:   strings.Repeat("t", 300),
		})
		assert.Len(t, payload.Content, maxContentLength)
		assert.True(t, strings.HasSuffix(payload.Content, truncationSuffix))
		assert.Len(t, payload.Embeds[0].Title, maxTitleLength)
	})

	t.Run("TC-4: limits count characters, not bytes", func(t *testing.T) {
		fits := strings.Repeat("ż", 200)
		payload := buildPayload(entity.WebhookMessage{Title: fits, Description: "Zajęcia"})
		assert.Equal(t, fits, payload.Embeds[0].Title)

		payload = buildPayload(entity.WebhookMessage{Title: strings.Repeat("ż", 300)})
		title := payload.Embeds[0].Title
		assert.True(t, utf8.ValidString(title))
		assert.Equal(t, maxTitleLength, utf8.RuneCountInString(title))
		assert.True(t, strings.HasSuffix(title, truncationSuffix))
	})
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10, "..."))
	assert.Equal(t, "abcd...", truncate("abcdefghij", 7, "..."))
	assert.Equal(t, "..", truncate("abcdef", 2, ".."))
	assert.Equal(t, "Łódź", truncate("Łódź", 4, "..."))
	assert.Equal(t, "Łó...", truncate("Łódź Kaliska", 5, "..."))
}

func TestDiscordClient_Send(t *testing.T) {
	t.Run("TC-1: posts JSON to {base}/{id}/{token} and returns nil on 204", func(t *testing.T) {
		// Arrange
		var gotPath, gotContentType string
		var gotPayload DiscordWebhookPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &gotPayload)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		client := newTestClient(server.URL + "/api/webhooks")

		// Act
		err := client.Send(context.Background(), testIdentity, entity.WebhookMessage{Content: "hi"})

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "/api/webhooks/123456789/secret-token", gotPath)
		assert.Equal(t, "application/json", gotContentType)
		assert.Equal(t, "hi", gotPayload.Content)
	})

	t.Run("TC-2: 404 returns ClientError without retry", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message": "Unknown Webhook", "code": 10015}`))
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), testIdentity, entity.WebhookMessage{Content: "hi"})

		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		assert.Equal(t, http.StatusNotFound, clientErr.StatusCode)
		assert.Contains(t, clientErr.Message, "Unknown Webhook")
		assert.True(t, IsClientError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("TC-3: 429 returns RateLimitError with retry_after", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message": "You are being rate limited.", "retry_after": 1.5}`))
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), testIdentity, entity.WebhookMessage{Content: "hi"})

		var rlErr *RateLimitError
		require.ErrorAs(t, err, &rlErr)
		assert.Equal(t, 1500*time.Millisecond, rlErr.RetryAfter)
		assert.True(t, IsClientError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("TC-4: 500 returns ServerError without retry", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		err := newTestClient(server.URL).Send(context.Background(), testIdentity, entity.WebhookMessage{Content: "hi"})

		var serverErr *ServerError
		require.ErrorAs(t, err, &serverErr)
		assert.Equal(t, http.StatusBadGateway, serverErr.StatusCode)
		assert.False(t, IsClientError(err))
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("TC-5: transport error does not leak the token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		err := newTestClient(server.URL).Send(context.Background(), testIdentity, entity.WebhookMessage{Content: "hi"})

		require.Error(t, err)
		assert.NotContains(t, err.Error(), "secret-token")
		assert.Equal(t, "transport_error", StatusLabel(err))
	})

	t.Run("TC-6: cancelled context fails fast", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := newTestClient(server.URL).Send(ctx, testIdentity, entity.WebhookMessage{Content: "hi"})
		assert.True(t, errors.Is(err, context.Canceled))
	})
}

func TestExtractRetryAfter(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "3")

	assert.Equal(t, 2*time.Second, extractRetryAfter(&http.Response{Header: http.Header{}}, []byte(`{"retry_after": 2}`)))
	assert.Equal(t, 3*time.Second, extractRetryAfter(&http.Response{Header: header}, []byte(`not json`)))
	assert.Equal(t, 5*time.Second, extractRetryAfter(&http.Response{Header: http.Header{}}, nil))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "success", StatusLabel(nil))
	assert.Equal(t, "client_error", StatusLabel(&ClientError{StatusCode: 400}))
	assert.Equal(t, "rate_limited", StatusLabel(&RateLimitError{}))
	assert.Equal(t, "server_error", StatusLabel(&ServerError{StatusCode: 503}))
}
