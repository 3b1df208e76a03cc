package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sponsorbase/sponsord/internal/clock"
	"github.com/sponsorbase/sponsord/internal/events"
	"github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"github.com/sponsorbase/sponsord/pkg/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Publisher events.Publisher
}

// Service is the lifecycle manager. It holds no mutable state: every call
// reads current state from the store, decides, writes back and publishes.
type Service struct {
	log       *zap.Logger
	clock     clock.Clock
	publisher events.Publisher

	installations  *store.Table[domain.Installation]
	sponsorships   *store.Table[domain.Sponsorship]
	emailByEmail   *store.Table[domain.AccountEmail]
	emailByAccount *store.Table[domain.AccountEmail]
	emails         *store.Projected[domain.AccountEmail]
}

func NewService(p ServiceParam) domain.Manager {
	emailByEmail := store.NewTable(p.DB, "account_emails_by_email", func(record domain.AccountEmail) store.Key {
		return store.Key{Partition: record.Email, Row: record.Account.ID}
	})
	emailByAccount := store.NewTable(p.DB, "account_emails_by_account", func(record domain.AccountEmail) store.Key {
		return store.Key{Partition: record.Account.ID, Row: record.Email}
	})
	return &Service{
		log:       p.Log.Named("sponsor.service"),
		clock:     p.Clock,
		publisher: p.Publisher,

		installations: store.NewTable(p.DB, "installations", func(record domain.Installation) store.Key {
			return store.Key{Partition: string(record.Kind), Row: record.Account.ID}
		}),
		sponsorships: store.NewTable(p.DB, "sponsorships", func(record domain.Sponsorship) store.Key {
			return store.Key{Partition: record.SponsorableID, Row: record.SponsorID}
		}),
		emailByEmail:   emailByEmail,
		emailByAccount: emailByAccount,
		emails:         store.NewProjected(emailByEmail, emailByAccount),
	}
}

func (s *Service) Install(ctx context.Context, kind domain.AppKind, account domain.AccountID, note string) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	now := s.clock.Now().UTC()
	record := domain.Installation{
		Account:   account,
		Kind:      kind,
		State:     domain.InstallationStateInstalled,
		Note:      strings.TrimSpace(note),
		UpdatedAt: now,
	}
	if err := s.installations.Put(ctx, record); err != nil {
		return err
	}
	s.publishInstallation(ctx, events.EventInstallationCreated, record)
	return nil
}

func (s *Service) Suspend(ctx context.Context, kind domain.AppKind, account domain.AccountID) error {
	return s.transitionInstallation(ctx, kind, account, domain.InstallationStateSuspended, events.EventInstallationSuspended)
}

func (s *Service) Unsuspend(ctx context.Context, kind domain.AppKind, account domain.AccountID) error {
	return s.transitionInstallation(ctx, kind, account, domain.InstallationStateInstalled, events.EventInstallationUnsuspended)
}

func (s *Service) Uninstall(ctx context.Context, kind domain.AppKind, account domain.AccountID) error {
	return s.transitionInstallation(ctx, kind, account, domain.InstallationStateDeleted, events.EventInstallationDeleted)
}

// transitionInstallation applies suspend/unsuspend/uninstall. These are
// meaningful only relative to a prior install: accepting them blind would
// silently fabricate history, so a missing or deleted record rejects.
func (s *Service) transitionInstallation(
	ctx context.Context,
	kind domain.AppKind,
	account domain.AccountID,
	state domain.InstallationState,
	eventType string,
) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	record, err := s.installations.Get(ctx, string(kind), account.ID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrUnknownInstallation
	}
	if err != nil {
		return err
	}
	if record.State == domain.InstallationStateDeleted && state != domain.InstallationStateDeleted {
		// Uninstall is final; only a fresh install starts a new record.
		return domain.ErrUnknownInstallation
	}

	record.State = state
	if account.Login != "" {
		record.Account = account
	}
	record.UpdatedAt = s.clock.Now().UTC()
	if err := s.installations.Put(ctx, *record); err != nil {
		return err
	}
	s.publishInstallation(ctx, eventType, *record)
	return nil
}

func (s *Service) Installation(ctx context.Context, kind domain.AppKind, account domain.AccountID) (*domain.Installation, error) {
	return s.installations.Get(ctx, string(kind), account.ID)
}

func (s *Service) Sponsor(ctx context.Context, req domain.SponsorRequest) error {
	if err := validateAccount(req.Sponsorable); err != nil {
		return err
	}
	if err := validateAccount(req.Sponsor); err != nil {
		return err
	}
	if req.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	now := s.clock.Now().UTC()
	record := domain.Sponsorship{
		SponsorableID:    req.Sponsorable.ID,
		SponsorID:        req.Sponsor.ID,
		SponsorableLogin: req.Sponsorable.Login,
		SponsorLogin:     req.Sponsor.Login,
		Amount:           req.Amount,
		Status:           domain.SponsorshipStatusActive,
		Note:             strings.TrimSpace(req.Note),
		CreatedAt:        now,
		ExpiresAt:        req.ExpiresAt,
	}
	if err := s.sponsorships.Put(ctx, record); err != nil {
		return err
	}
	s.publishSponsorship(ctx, events.EventSponsorshipCreated, record, "")
	return nil
}

func (s *Service) Unsponsor(ctx context.Context, sponsorableID, sponsorID string, cancelAt time.Time, note string) error {
	record, err := s.sponsorships.Get(ctx, sponsorableID, sponsorID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrUnknownSponsorship
	}
	if err != nil {
		return err
	}
	if record.Status == domain.SponsorshipStatusEnded {
		// Redelivered cancellation for an already-ended sponsorship.
		return nil
	}

	now := s.clock.Now().UTC()
	if !cancelAt.After(now) {
		return s.endSponsorship(ctx, record, now, strings.TrimSpace(note))
	}

	// Future-dated cancellation: record the effective date as the expiry so
	// the daily sweep performs the ending transition on schedule.
	cancelAt = cancelAt.UTC()
	record.ExpiresAt = &cancelAt
	record.Note = strings.TrimSpace(note)
	if err := s.sponsorships.Put(ctx, *record); err != nil {
		return err
	}
	s.publishSponsorship(ctx, events.EventSponsorshipUpdated, *record, "")
	return nil
}

func (s *Service) SponsorUpdate(ctx context.Context, sponsorableID, sponsorID string, amount int64, note string) error {
	if amount <= 0 {
		return domain.ErrInvalidAmount
	}
	record, err := s.sponsorships.Get(ctx, sponsorableID, sponsorID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrUnknownSponsorship
	}
	if err != nil {
		return err
	}
	if record.Status == domain.SponsorshipStatusEnded {
		return domain.ErrSponsorshipEnded
	}

	record.Amount = amount
	record.Note = strings.TrimSpace(note)
	if err := s.sponsorships.Put(ctx, *record); err != nil {
		return err
	}
	s.publishSponsorship(ctx, events.EventSponsorshipUpdated, *record, "")
	return nil
}

func (s *Service) SponsorshipOf(ctx context.Context, sponsorableID, sponsorID string) (*domain.Sponsorship, error) {
	return s.sponsorships.Get(ctx, sponsorableID, sponsorID)
}

func (s *Service) CheckExpirations(ctx context.Context) (int, error) {
	records, err := s.sponsorships.ScanAll(ctx)
	if err != nil {
		return 0, err
	}

	now := s.clock.Now().UTC()
	ended := 0
	for i := range records {
		record := records[i]
		if record.Status != domain.SponsorshipStatusActive || record.ExpiresAt == nil {
			continue
		}
		if record.ExpiresAt.After(now) {
			continue
		}
		note := fmt.Sprintf("expired %s", record.ExpiresAt.UTC().Format("2006-01-02"))
		if err := s.endSponsorship(ctx, &record, now, note); err != nil {
			return ended, err
		}
		ended++
	}
	return ended, nil
}

// endSponsorship is the single ending transition shared by unsponsor and the
// expiration sweep.
func (s *Service) endSponsorship(ctx context.Context, record *domain.Sponsorship, now time.Time, note string) error {
	record.Status = domain.SponsorshipStatusEnded
	record.EndedAt = &now
	if note != "" {
		record.Note = note
	}
	if err := s.sponsorships.Put(ctx, *record); err != nil {
		return err
	}
	dedupe := fmt.Sprintf("%s:%s:%s:%d",
		events.EventSponsorshipEnded, record.SponsorableID, record.SponsorID, record.CreatedAt.Unix())
	s.publishSponsorship(ctx, events.EventSponsorshipEnded, *record, dedupe)
	return nil
}

func (s *Service) RegisterEmail(ctx context.Context, account domain.AccountID, email string) error {
	if err := validateAccount(account); err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.ErrInvalidEmail
	}
	record := domain.AccountEmail{
		Account:    account,
		Email:      email,
		VerifiedAt: s.clock.Now().UTC(),
	}
	return s.emails.Put(ctx, record)
}

func (s *Service) AccountByEmail(ctx context.Context, email string) (*domain.AccountEmail, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	records, err := s.emailByEmail.Scan(ctx, email)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	return &records[0], nil
}

func (s *Service) EmailsByAccount(ctx context.Context, account domain.AccountID) ([]domain.AccountEmail, error) {
	return s.emailByAccount.Scan(ctx, account.ID)
}

func (s *Service) publishInstallation(ctx context.Context, eventType string, record domain.Installation) {
	s.publish(ctx, events.Event{
		Type: eventType,
		Payload: events.InstallationPayload{
			AccountID:    record.Account.ID,
			AccountLogin: record.Account.Login,
			Kind:         string(record.Kind),
			State:        string(record.State),
			Note:         record.Note,
			Timestamp:    record.UpdatedAt,
		}.ToMap(),
	})
}

func (s *Service) publishSponsorship(ctx context.Context, eventType string, record domain.Sponsorship, dedupe string) {
	timestamp := record.CreatedAt
	if record.EndedAt != nil {
		timestamp = *record.EndedAt
	}
	s.publish(ctx, events.Event{
		Type: eventType,
		Payload: events.SponsorshipPayload{
			SponsorableID:    record.SponsorableID,
			SponsorID:        record.SponsorID,
			SponsorableLogin: record.SponsorableLogin,
			SponsorLogin:     record.SponsorLogin,
			Amount:           record.Amount,
			Status:           string(record.Status),
			ExpiresAt:        record.ExpiresAt,
			Timestamp:        timestamp,
		}.ToMap(),
		DedupeKey: dedupe,
	})
}

// publish is fire-and-forget: the store write already committed and is never
// rolled back on a publisher failure.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("event publish failed", zap.String("event_type", event.Type), zap.Error(err))
	}
}

func validateAccount(account domain.AccountID) error {
	if strings.TrimSpace(account.ID) == "" {
		return domain.ErrInvalidAccount
	}
	return nil
}
