package domain

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnknownInstallation = errors.New("unknown_installation")
	ErrUnknownSponsorship  = errors.New("unknown_sponsorship")
	ErrSponsorshipEnded    = errors.New("sponsorship_ended")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidAppKind      = errors.New("invalid_app_kind")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidEmail        = errors.New("invalid_email")
)

// SponsorRequest creates or overwrites a sponsorship. ExpiresAt is supplied
// by the boundary for one-time sponsorships and stored verbatim.
type SponsorRequest struct {
	Sponsorable AccountID
	Sponsor     AccountID
	Amount      int64
	ExpiresAt   *time.Time
	Note        string
}

// Manager owns every mutation of installation and sponsorship records. All
// state changes, whether triggered by a webhook delivery or by the scheduled
// expiration sweep, go through these methods; nothing else writes to storage.
type Manager interface {
	// Install creates or overwrites the installation for (kind, account)
	// with state installed. It succeeds regardless of prior state: an
	// account can legitimately re-install an app it previously removed.
	Install(ctx context.Context, kind AppKind, account AccountID, note string) error

	// Suspend, Unsuspend and Uninstall are meaningful only relative to a
	// prior install and return ErrUnknownInstallation when no live record
	// exists. Uninstall is final; the record stays behind as an audit
	// trail in state deleted.
	Suspend(ctx context.Context, kind AppKind, account AccountID) error
	Unsuspend(ctx context.Context, kind AppKind, account AccountID) error
	Uninstall(ctx context.Context, kind AppKind, account AccountID) error

	// Installation reads the current record, store.ErrNotFound when absent.
	Installation(ctx context.Context, kind AppKind, account AccountID) (*Installation, error)

	Sponsor(ctx context.Context, req SponsorRequest) error

	// Unsponsor marks the sponsorship as ending at cancelAt. A date at or
	// before now ends it immediately; a future date schedules the end for
	// the expiration sweep. Already-ended sponsorships are a no-op so that
	// provider redelivery stays harmless.
	Unsponsor(ctx context.Context, sponsorableID, sponsorID string, cancelAt time.Time, note string) error

	// SponsorUpdate mutates the amount in place on a tier change, leaving
	// CreatedAt and ExpiresAt untouched.
	SponsorUpdate(ctx context.Context, sponsorableID, sponsorID string, amount int64, note string) error

	// SponsorshipOf reads the current record, store.ErrNotFound when absent.
	SponsorshipOf(ctx context.Context, sponsorableID, sponsorID string) (*Sponsorship, error)

	// CheckExpirations ends every active sponsorship whose expiry has
	// passed and reports how many it ended. Safe to run repeatedly: ended
	// records are skipped without further side effects.
	CheckExpirations(ctx context.Context) (int, error)

	// RegisterEmail records a verified email under both lookup orderings.
	RegisterEmail(ctx context.Context, account AccountID, email string) error
	AccountByEmail(ctx context.Context, email string) (*AccountEmail, error)
	EmailsByAccount(ctx context.Context, account AccountID) ([]AccountEmail, error)
}
