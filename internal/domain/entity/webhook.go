package entity

import (
	"time"

	"github.com/google/uuid"
)

// DiscordWebhookIdentity is the (id, token) pair addressing a Discord
// webhook. Two identities are the same webhook iff both parts are equal.
type DiscordWebhookIdentity struct {
	DiscordID string
	Token     string
}

// String masks the token so identities can be logged safely.
func (i DiscordWebhookIdentity) String() string {
	return i.DiscordID + "/" + maskSecret(i.Token)
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "****"
}

// Webhook is a registered Discord destination subscribed to schedules.
type Webhook struct {
	ID          uuid.UUID
	Identity    DiscordWebhookIdentity
	AddedBy     string
	ScheduleIDs []uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OwnedBy reports whether userID registered the webhook.
func (w *Webhook) OwnedBy(userID string) bool {
	return userID != "" && w.AddedBy == userID
}

// WebhookMessage is a transport-neutral notification body.
type WebhookMessage struct {
	Content     string
	Title       string
	Description string
	Footer      string
	Timestamp   time.Time
}

// RoleAdmin grants access to every webhook and to schedule administration.
const RoleAdmin = "admin"

// Requester is the authenticated caller of a registry operation.
type Requester struct {
	UserID string
	Roles  []string
}

// IsAdmin reports whether the requester holds the admin role.
func (r Requester) IsAdmin() bool {
	for _, role := range r.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// CanManage reports whether the requester may modify w.
func (r Requester) CanManage(w *Webhook) bool {
	return r.IsAdmin() || w.OwnedBy(r.UserID)
}
