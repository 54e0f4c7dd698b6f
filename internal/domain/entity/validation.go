package entity

import (
	"fmt"
	"net/url"
	"strings"
)

// maxURLLength defines the maximum allowed length for URLs to prevent DoS attacks.
const maxURLLength = 2048

// ValidateBaseURL checks that rawURL is an absolute http(s) URL usable as the
// base of an outbound API (timetable source, Discord webhook endpoint).
func ValidateBaseURL(field, rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: field, Message: "URL is required"}
	}
	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return &ValidationError{Field: field, Message: "URL is malformed"}
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &ValidationError{Field: field, Message: "URL must use http or https scheme"}
	}
	if parsed.Host == "" {
		return &ValidationError{Field: field, Message: "URL must have a valid host"}
	}
	if parsed.RawQuery != "" || parsed.Fragment != "" {
		return &ValidationError{Field: field, Message: "URL must not contain a query or fragment"}
	}
	return nil
}

func requireText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "is required"}
	}
	if maxLen > 0 && len(value) > maxLen {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d characters", maxLen)}
	}
	return nil
}
