package events

import (
	"context"
	"time"
)

// Lifecycle event types published on committed transitions.
const (
	EventInstallationCreated     = "installation.created"
	EventInstallationSuspended   = "installation.suspended"
	EventInstallationUnsuspended = "installation.unsuspended"
	EventInstallationDeleted     = "installation.deleted"
	EventSponsorshipCreated      = "sponsorship.created"
	EventSponsorshipUpdated      = "sponsorship.updated"
	EventSponsorshipEnded        = "sponsorship.ended"
)

// Event describes one lifecycle notification. DedupeKey, when set, collapses
// redelivered duplicates at the storage layer.
type Event struct {
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// Publisher delivers lifecycle events best-effort. Callers treat failures as
// log-only: lifecycle truth lives in the store and notification is a
// secondary effect.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// InstallationPayload is the minimal projection of an installation transition.
type InstallationPayload struct {
	AccountID    string
	AccountLogin string
	Kind         string
	State        string
	Note         string
	Timestamp    time.Time
}

// ToMap converts the payload into an outbox-friendly map.
func (p InstallationPayload) ToMap() map[string]any {
	payload := map[string]any{
		"account_id":    p.AccountID,
		"account_login": p.AccountLogin,
		"kind":          p.Kind,
		"state":         p.State,
		"timestamp":     p.Timestamp.UTC().Format(time.RFC3339),
	}
	if p.Note != "" {
		payload["note"] = p.Note
	}
	return payload
}

// SponsorshipPayload is the minimal projection of a sponsorship transition.
type SponsorshipPayload struct {
	SponsorableID    string
	SponsorID        string
	SponsorableLogin string
	SponsorLogin     string
	Amount           int64
	Status           string
	ExpiresAt        *time.Time
	Timestamp        time.Time
}

// ToMap converts the payload into an outbox-friendly map.
func (p SponsorshipPayload) ToMap() map[string]any {
	payload := map[string]any{
		"sponsorable_id":    p.SponsorableID,
		"sponsor_id":        p.SponsorID,
		"sponsorable_login": p.SponsorableLogin,
		"sponsor_login":     p.SponsorLogin,
		"amount":            p.Amount,
		"status":            p.Status,
		"timestamp":         p.Timestamp.UTC().Format(time.RFC3339),
	}
	if p.ExpiresAt != nil {
		payload["expires_at"] = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return payload
}
