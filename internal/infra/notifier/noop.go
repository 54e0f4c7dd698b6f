package notifier

import (
	"context"
	"log/slog"

	"course-watch/internal/domain/entity"
)

// NoOpClient accepts every message without sending it. It is wired in when
// DISCORD_ENABLED=false so the notifier service can run against a real
// queue without reaching Discord.
type NoOpClient struct{}

// NewNoOpClient creates a NoOpClient.
func NewNoOpClient() *NoOpClient {
	return &NoOpClient{}
}

// Send logs the suppressed delivery at debug level and returns nil.
func (n *NoOpClient) Send(ctx context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error {
	slog.DebugContext(ctx, "discord delivery disabled, message dropped",
		slog.String("webhook", identity.String()),
		slog.String("title", msg.Title))
	return nil
}
