// Package domain contains the lifecycle records for app installations and
// sponsorships.
package domain

import (
	"strings"
	"time"
)

// AccountID identifies an external account. The stable ID is the consistency
// key; the login rides along for human-facing notes. The two are always
// persisted together.
type AccountID struct {
	ID    string `json:"id"`
	Login string `json:"login"`
}

// AppKind distinguishes which app an installation belongs to.
type AppKind string

const (
	AppKindSponsorable AppKind = "sponsorable"
	AppKindAdmin       AppKind = "admin"
)

// ParseAppKind maps a provider app slug onto a known kind.
func ParseAppKind(slug string) (AppKind, bool) {
	switch AppKind(strings.ToLower(strings.TrimSpace(slug))) {
	case AppKindSponsorable:
		return AppKindSponsorable, true
	case AppKindAdmin:
		return AppKindAdmin, true
	}
	return "", false
}

// InstallationState is the lifecycle state of one installation.
type InstallationState string

const (
	InstallationStateInstalled InstallationState = "installed"
	InstallationStateSuspended InstallationState = "suspended"
	InstallationStateDeleted   InstallationState = "deleted"
)

// Installation records one app's presence on one account. There is at most
// one record per (account id, kind); it is mutated in place across its
// lifecycle and soft-deleted, never physically removed. A later install after
// a delete overwrites the record and starts a new logical installation.
type Installation struct {
	Account   AccountID         `json:"account"`
	Kind      AppKind           `json:"kind"`
	State     InstallationState `json:"state"`
	Note      string            `json:"note,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// SponsorshipStatus marks whether a sponsorship is still funding.
type SponsorshipStatus string

const (
	SponsorshipStatusActive SponsorshipStatus = "active"
	SponsorshipStatusEnded  SponsorshipStatus = "ended"
)

// Sponsorship is one sponsor -> sponsorable relationship. ExpiresAt is set
// only for one-time sponsorships (fixed by the boundary to creation + 30
// days) or when a pending cancellation schedules the end; it is never
// extended.
type Sponsorship struct {
	SponsorableID    string            `json:"sponsorable_id"`
	SponsorID        string            `json:"sponsor_id"`
	SponsorableLogin string            `json:"sponsorable_login"`
	SponsorLogin     string            `json:"sponsor_login"`
	Amount           int64             `json:"amount"`
	Status           SponsorshipStatus `json:"status"`
	Note             string            `json:"note,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	EndedAt          *time.Time        `json:"ended_at,omitempty"`
}

// AccountEmail links a verified email address to an account. One logical
// fact, stored under both (email -> account) and (account -> email) key
// orderings.
type AccountEmail struct {
	Account    AccountID `json:"account"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}
