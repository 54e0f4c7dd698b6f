package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"course-watch/internal/common/pagination"
	"course-watch/internal/domain/entity"
	"course-watch/internal/observability/metrics"
	"course-watch/internal/repository"
)

// Prober delivers the liveness probe. The Discord client satisfies it.
type Prober interface {
	Send(ctx context.Context, identity entity.DiscordWebhookIdentity, msg entity.WebhookMessage) error
}

// welcomeMessage is sent to every candidate endpoint before it is stored.
var welcomeMessage = entity.WebhookMessage{
	Content:     "This channel will now receive course schedule updates.",
	Title:       "Webhook registered",
	Description: "You will be notified here whenever a subscribed schedule changes.",
	Footer:      "course-watch",
}

const defaultProbeTimeout = 10 * time.Second

// CreateInput represents the input parameters for registering a webhook.
type CreateInput struct {
	URL         string
	ScheduleIDs []uuid.UUID
}

// UpdateInput represents the full replacement of a webhook's URL and schedules.
type UpdateInput struct {
	URL         string
	ScheduleIDs []uuid.UUID
}

// Service is the webhook registry.
type Service struct {
	Webhooks  repository.WebhookRepository
	Schedules repository.ScheduleRepository
	Prober    Prober

	// BaseURL is the configured Discord webhook prefix.
	BaseURL string

	// ProbeTimeout bounds the liveness probe; zero means 10s.
	ProbeTimeout time.Duration

	Pagination pagination.Config

	// Now is overridable in tests.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// validated is the outcome of the shared create/update pipeline.
type validated struct {
	identity    entity.DiscordWebhookIdentity
	scheduleIDs []uuid.UUID
}

// validate runs URL format, uniqueness, schedule existence and liveness
// probe in that order, stopping at the first failure. self is the webhook
// being updated (uuid.Nil on create) and is exempt from the uniqueness check.
func (s *Service) validate(ctx context.Context, rawURL string, scheduleIDs []uuid.UUID, self uuid.UUID) (*validated, error) {
	identity, err := ParseWebhookURL(s.BaseURL, rawURL)
	if err != nil {
		return nil, err
	}

	existing, err := s.Webhooks.FindByIdentity(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("find webhook by identity: %w", err)
	}
	if existing != nil && existing.ID != self {
		return nil, ErrWebhookURLUnavailable
	}

	ids := dedupe(scheduleIDs)
	if len(ids) == 0 {
		return nil, &SchedulesNotFoundError{}
	}
	missing, err := s.Schedules.ExistsAll(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("check schedules: %w", err)
	}
	if len(missing) > 0 {
		return nil, &SchedulesNotFoundError{Missing: missing}
	}

	if err := s.probe(ctx, identity); err != nil {
		return nil, err
	}

	return &validated{identity: identity, scheduleIDs: ids}, nil
}

func (s *Service) probe(ctx context.Context, identity entity.DiscordWebhookIdentity) error {
	timeout := s.ProbeTimeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	msg := welcomeMessage
	msg.Timestamp = s.now()
	if err := s.Prober.Send(probeCtx, identity, msg); err != nil {
		slog.WarnContext(ctx, "webhook liveness probe failed",
			slog.String("webhook", identity.String()),
			slog.Any("error", err))
		return fmt.Errorf("%w: %v", ErrWebhookNotWorking, err)
	}
	return nil
}

// Create registers a webhook owned by the requester.
func (s *Service) Create(ctx context.Context, in CreateInput, requester entity.Requester) (_ *entity.Webhook, err error) {
	defer recordOperation("create", &err)

	v, err := s.validate(ctx, in.URL, in.ScheduleIDs, uuid.Nil)
	if err != nil {
		return nil, err
	}

	now := s.now()
	w := &entity.Webhook{
		ID:          uuid.New(),
		Identity:    v.identity,
		AddedBy:     requester.UserID,
		ScheduleIDs: v.scheduleIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Webhooks.Create(ctx, w); err != nil {
		// a concurrent create won the race for this identity
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrWebhookURLUnavailable
		}
		return nil, fmt.Errorf("create webhook: %w", err)
	}

	slog.InfoContext(ctx, "webhook registered",
		slog.String("webhook_id", w.ID.String()),
		slog.String("webhook", w.Identity.String()),
		slog.String("added_by", w.AddedBy),
		slog.Int("schedules", len(w.ScheduleIDs)))
	return w, nil
}

// recordOperation counts a mutating call under "ok" or its error kind.
func recordOperation(operation string, err *error) {
	result := "ok"
	if *err != nil {
		result = KindOf(*err).String()
	}
	metrics.RecordWebhookOperation(operation, result)
}

// loadManaged fetches a webhook and checks the requester may manage it.
func (s *Service) loadManaged(ctx context.Context, id uuid.UUID, requester entity.Requester) (*entity.Webhook, error) {
	w, err := s.Webhooks.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get webhook: %w", err)
	}
	if w == nil {
		return nil, ErrWebhookNotFound
	}
	if !requester.CanManage(w) {
		return nil, ErrForbidden
	}
	return w, nil
}

// Get returns a webhook visible to the requester.
func (s *Service) Get(ctx context.Context, id uuid.UUID, requester entity.Requester) (*entity.Webhook, error) {
	return s.loadManaged(ctx, id, requester)
}

// Update replaces URL and schedules of a webhook. The owner is unchanged.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput, requester entity.Requester) (_ *entity.Webhook, err error) {
	defer recordOperation("update", &err)

	w, err := s.loadManaged(ctx, id, requester)
	if err != nil {
		return nil, err
	}

	v, err := s.validate(ctx, in.URL, in.ScheduleIDs, w.ID)
	if err != nil {
		return nil, err
	}

	w.Identity = v.identity
	w.ScheduleIDs = v.scheduleIDs
	w.UpdatedAt = s.now()
	if err := s.Webhooks.Update(ctx, w); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrWebhookURLUnavailable
		case errors.Is(err, entity.ErrNotFound):
			return nil, ErrWebhookNotFound
		}
		return nil, fmt.Errorf("update webhook: %w", err)
	}

	slog.InfoContext(ctx, "webhook updated",
		slog.String("webhook_id", w.ID.String()),
		slog.String("webhook", w.Identity.String()),
		slog.String("requester", requester.UserID))
	return w, nil
}

// Delete removes a webhook.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, requester entity.Requester) (err error) {
	defer recordOperation("delete", &err)

	w, err := s.loadManaged(ctx, id, requester)
	if err != nil {
		return err
	}
	if err := s.Webhooks.Delete(ctx, w.ID); err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return ErrWebhookNotFound
		}
		return fmt.Errorf("delete webhook: %w", err)
	}

	slog.InfoContext(ctx, "webhook deleted",
		slog.String("webhook_id", w.ID.String()),
		slog.String("requester", requester.UserID))
	return nil
}

// FindBySchedule returns every webhook subscribed to scheduleID.
// It performs no authorization and is meant for the dispatcher only.
func (s *Service) FindBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*entity.Webhook, error) {
	webhooks, err := s.Webhooks.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("list webhooks by schedule: %w", err)
	}
	return webhooks, nil
}

// ListForRequester pages through all webhooks for admins and through the
// requester's own webhooks otherwise.
func (s *Service) ListForRequester(ctx context.Context, requester entity.Requester, params pagination.Params) (pagination.Response[*entity.Webhook], error) {
	cfg := s.Pagination
	if cfg.MaxLimit <= 0 {
		cfg = pagination.DefaultConfig()
	}
	params = params.WithDefaults(cfg)
	offset := pagination.CalculateOffset(params.Page, params.Limit)

	var (
		webhooks []*entity.Webhook
		total    int64
		err      error
	)
	if requester.IsAdmin() {
		if total, err = s.Webhooks.Count(ctx); err == nil {
			webhooks, err = s.Webhooks.List(ctx, offset, params.Limit)
		}
	} else {
		if total, err = s.Webhooks.CountByOwner(ctx, requester.UserID); err == nil {
			webhooks, err = s.Webhooks.ListByOwner(ctx, requester.UserID, offset, params.Limit)
		}
	}
	if err != nil {
		return pagination.Response[*entity.Webhook]{}, fmt.Errorf("list webhooks: %w", err)
	}
	if webhooks == nil {
		webhooks = []*entity.Webhook{}
	}

	return pagination.NewResponse(webhooks, pagination.NewMetadata(total, params)), nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
