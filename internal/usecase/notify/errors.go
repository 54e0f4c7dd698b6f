// Package notify delivers course change notifications to every Discord
// webhook subscribed to the changed schedule.
package notify

import "errors"

var (
	// ErrInvalidEvent indicates the event carries no schedule id. Retrying
	// cannot fix it, so callers should drop the event.
	ErrInvalidEvent = errors.New("invalid courses changed event")

	// ErrLookupFailed indicates subscribers could not be loaded. The event
	// should be redelivered.
	ErrLookupFailed = errors.New("webhook lookup failed")
)
