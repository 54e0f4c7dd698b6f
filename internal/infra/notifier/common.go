package notifier

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// RateLimitError represents a 429 response. RetryAfter is informational;
// the client never waits on it.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError represents a 4xx response other than 429.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError represents a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return e.Message
}

// IsClientError reports whether err is a 4xx response from Discord,
// including 429.
func IsClientError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return true
	}
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// StatusLabel classifies err for metrics labels.
func StatusLabel(err error) string {
	var (
		clientErr    *ClientError
		serverErr    *ServerError
		rateLimitErr *RateLimitError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &rateLimitErr):
		return "rate_limited"
	case errors.As(err, &clientErr):
		return "client_error"
	case errors.As(err, &serverErr):
		return "server_error"
	default:
		return "transport_error"
	}
}

// truncate cuts text to maxLength characters, ending with suffix when
// shortened. Discord limits count characters, not bytes.
func truncate(text string, maxLength int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	truncateAt := maxLength - utf8.RuneCountInString(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}
	return string([]rune(text)[:truncateAt]) + suffix
}
