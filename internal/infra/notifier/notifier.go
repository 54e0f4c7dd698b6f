// Package notifier delivers webhook messages to Discord.
//
// DiscordClient performs exactly one HTTP attempt per Send call and reports
// the outcome through typed errors (ClientError, ServerError,
// RateLimitError); callers decide whether anything is retried. NoOpClient
// is used when outbound delivery is disabled.
package notifier

import (
	"context"

	"course-watch/internal/domain/entity"
)

// WebhookSender sends a single message to a single Discord webhook.
type WebhookSender interface {
	Send(ctx context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error
}
