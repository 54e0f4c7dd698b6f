// Package webhook implements the registry of Discord webhooks subscribed to
// schedules: URL parsing, global identity uniqueness, schedule existence,
// liveness probing and owner-or-admin authorization.
package webhook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for webhook registry operations. Every failure returned by
// the Service wraps exactly one of them.
var (
	// ErrInvalidWebhookURL indicates the URL is not {base}/{id}/{token}.
	ErrInvalidWebhookURL = errors.New("invalid webhook url")

	// ErrWebhookURLUnavailable indicates another webhook already uses the identity.
	ErrWebhookURLUnavailable = errors.New("webhook url already registered")

	// ErrSchedulesNotFound indicates the schedule set is empty or references
	// schedules that do not exist.
	ErrSchedulesNotFound = errors.New("schedules not found")

	// ErrWebhookNotWorking indicates the liveness probe was rejected.
	ErrWebhookNotWorking = errors.New("webhook is not working")

	// ErrForbidden indicates the requester is neither the owner nor an admin.
	ErrForbidden = errors.New("forbidden")

	// ErrWebhookNotFound indicates the webhook id does not exist.
	ErrWebhookNotFound = errors.New("webhook not found")
)

// SchedulesNotFoundError lists the schedule ids that failed to resolve.
// It matches ErrSchedulesNotFound with errors.Is.
type SchedulesNotFoundError struct {
	Missing []uuid.UUID
}

func (e *SchedulesNotFoundError) Error() string {
	if len(e.Missing) == 0 {
		return "schedules not found: at least one schedule is required"
	}
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = id.String()
	}
	return fmt.Sprintf("schedules not found: %s", strings.Join(ids, ", "))
}

func (e *SchedulesNotFoundError) Is(target error) bool {
	return target == ErrSchedulesNotFound
}

// ErrorKind groups registry errors the way an outer transport maps them
// (400 / 403 / 404 / 500).
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindAuthorization
	KindNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// KindOf classifies err. Unknown errors are internal.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidWebhookURL),
		errors.Is(err, ErrWebhookURLUnavailable),
		errors.Is(err, ErrSchedulesNotFound),
		errors.Is(err, ErrWebhookNotWorking):
		return KindValidation
	case errors.Is(err, ErrForbidden):
		return KindAuthorization
	case errors.Is(err, ErrWebhookNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
