package repository

import (
	"context"

	"github.com/google/uuid"

	"course-watch/internal/domain/entity"
)

// WebhookRepository persists webhooks with their schedule subscriptions.
// Get and FindByIdentity return (nil, nil) when nothing matches.
// Create and Update return ErrDuplicate when the identity is taken.
type WebhookRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.Webhook, error)
	FindByIdentity(ctx context.Context, identity entity.DiscordWebhookIdentity) (*entity.Webhook, error)
	List(ctx context.Context, offset, limit int) ([]*entity.Webhook, error)
	Count(ctx context.Context) (int64, error)
	ListByOwner(ctx context.Context, owner string, offset, limit int) ([]*entity.Webhook, error)
	CountByOwner(ctx context.Context, owner string) (int64, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Webhook, error)
	Create(ctx context.Context, webhook *entity.Webhook) error
	Update(ctx context.Context, webhook *entity.Webhook) error
	Delete(ctx context.Context, id uuid.UUID) error
}
