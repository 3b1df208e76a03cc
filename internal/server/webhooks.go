package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"go.uber.org/zap"
)

// oneTimeDuration is how long a one-time sponsorship funds. The expiry is
// fixed here at the boundary and stored verbatim.
const oneTimeDuration = 30 * 24 * time.Hour

type accountRef struct {
	ID    json.Number `json:"id"`
	Login string      `json:"login"`
}

func (a accountRef) toAccountID() sponsordomain.AccountID {
	return sponsordomain.AccountID{ID: a.ID.String(), Login: a.Login}
}

type installationEvent struct {
	Action       string `json:"action"`
	Installation struct {
		Account accountRef `json:"account"`
		AppSlug string     `json:"app_slug"`
	} `json:"installation"`
}

type sponsorshipEvent struct {
	Action      string `json:"action"`
	Sponsorship struct {
		Sponsorable accountRef `json:"sponsorable"`
		Sponsor     accountRef `json:"sponsor"`
		CreatedAt   time.Time  `json:"created_at"`
		Tier        struct {
			Name                  string `json:"name"`
			MonthlyPriceInDollars int64  `json:"monthly_price_in_dollars"`
			IsOneTime             bool   `json:"is_one_time"`
		} `json:"tier"`
	} `json:"sponsorship"`
	EffectiveDate string `json:"effective_date"`
}

// Webhook decodes a provider delivery into one typed manager call. The
// payload is read once into a per-event struct; the manager never sees raw
// JSON.
func (s *Server) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if !validSignature(s.cfg.WebhookSecret, body, c.GetHeader("X-Hub-Signature-256")) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "invalid_signature"}})
		return
	}

	event := c.GetHeader("X-GitHub-Event")
	switch event {
	case "installation":
		s.handleInstallationEvent(c, body)
	case "sponsorship":
		s.handleSponsorshipEvent(c, body)
	default:
		s.log.Debug("ignoring webhook event", zap.String("event", event))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

func (s *Server) handleInstallationEvent(c *gin.Context, body []byte) {
	var payload installationEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	kind, ok := sponsordomain.ParseAppKind(payload.Installation.AppSlug)
	if !ok {
		kind = sponsordomain.AppKindSponsorable
	}
	account := payload.Installation.Account.toAccountID()
	ctx := c.Request.Context()

	var err error
	switch payload.Action {
	case "created":
		err = s.manager.Install(ctx, kind, account, "installed via "+payload.Installation.AppSlug)
	case "deleted":
		err = s.manager.Uninstall(ctx, kind, account)
	case "suspend":
		err = s.manager.Suspend(ctx, kind, account)
	case "unsuspend":
		err = s.manager.Unsuspend(ctx, kind, account)
	default:
		s.log.Debug("ignoring installation action", zap.String("action", payload.Action))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleSponsorshipEvent(c *gin.Context, body []byte) {
	var payload sponsorshipEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sponsorable := payload.Sponsorship.Sponsorable.toAccountID()
	sponsor := payload.Sponsorship.Sponsor.toAccountID()
	ctx := c.Request.Context()

	var err error
	switch payload.Action {
	case "created":
		req := sponsordomain.SponsorRequest{
			Sponsorable: sponsorable,
			Sponsor:     sponsor,
			Amount:      payload.Sponsorship.Tier.MonthlyPriceInDollars,
			Note:        "tier: " + payload.Sponsorship.Tier.Name,
		}
		if payload.Sponsorship.Tier.IsOneTime {
			expires := payload.Sponsorship.CreatedAt.Add(oneTimeDuration)
			req.ExpiresAt = &expires
		}
		err = s.manager.Sponsor(ctx, req)
	case "pending_cancellation":
		cancelAt, parseErr := parseEffectiveDate(payload.EffectiveDate)
		if parseErr != nil {
			AbortWithError(c, newValidationError("effective_date", "invalid_effective_date", "invalid effective date"))
			return
		}
		err = s.manager.Unsponsor(ctx, sponsorable.ID, sponsor.ID, cancelAt, "pending cancellation")
	case "tier_changed":
		err = s.manager.SponsorUpdate(ctx, sponsorable.ID, sponsor.ID,
			payload.Sponsorship.Tier.MonthlyPriceInDollars, "tier: "+payload.Sponsorship.Tier.Name)
	default:
		s.log.Debug("ignoring sponsorship action", zap.String("action", payload.Action))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseEffectiveDate(raw string) (time.Time, error) {
	if value, err := time.Parse(time.RFC3339, raw); err == nil {
		return value, nil
	}
	return time.Parse("2006-01-02", raw)
}
