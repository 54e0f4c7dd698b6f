package webhook

import (
	"fmt"
	"net/url"
	"strings"

	"course-watch/internal/domain/entity"
)

// ParseWebhookURL extracts the Discord identity from raw, which must be
// exactly {base}/{discordId}/{token}. Scheme and host compare
// case-insensitively; query strings, fragments and extra path segments are
// rejected.
func ParseWebhookURL(base, raw string) (entity.DiscordWebhookIdentity, error) {
	var zero entity.DiscordWebhookIdentity

	baseURL, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil || baseURL.Host == "" {
		return zero, fmt.Errorf("%w: misconfigured base %q", ErrInvalidWebhookURL, base)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return zero, fmt.Errorf("%w: url is required", ErrInvalidWebhookURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return zero, fmt.Errorf("%w: malformed url", ErrInvalidWebhookURL)
	}
	if !strings.EqualFold(u.Scheme, baseURL.Scheme) || !strings.EqualFold(u.Host, baseURL.Host) {
		return zero, fmt.Errorf("%w: url must start with %s", ErrInvalidWebhookURL, base)
	}
	if u.RawQuery != "" || u.Fragment != "" || u.User != nil {
		return zero, fmt.Errorf("%w: url must not carry a query, fragment or credentials", ErrInvalidWebhookURL)
	}

	prefix := strings.TrimRight(baseURL.EscapedPath(), "/") + "/"
	path := u.EscapedPath()
	if !strings.HasPrefix(path, prefix) {
		return zero, fmt.Errorf("%w: url must start with %s", ErrInvalidWebhookURL, base)
	}

	segments := strings.Split(strings.TrimPrefix(path, prefix), "/")
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return zero, fmt.Errorf("%w: expected %s/{id}/{token}", ErrInvalidWebhookURL, base)
	}

	id, err := url.PathUnescape(segments[0])
	if err != nil {
		return zero, fmt.Errorf("%w: malformed id", ErrInvalidWebhookURL)
	}
	token, err := url.PathUnescape(segments[1])
	if err != nil {
		return zero, fmt.Errorf("%w: malformed token", ErrInvalidWebhookURL)
	}
	return entity.DiscordWebhookIdentity{DiscordID: id, Token: token}, nil
}
