package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sponsorbase/sponsord/internal/config"
	sponsordomain "github.com/sponsorbase/sponsord/internal/sponsor/domain"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type managerCall struct {
	op        string
	kind      sponsordomain.AppKind
	account   sponsordomain.AccountID
	sponsor   sponsordomain.SponsorRequest
	cancelAt  time.Time
	amount    int64
	idPair    [2]string
	note      string
	returnErr error
}

type recordingManager struct {
	sponsordomain.Manager

	calls []managerCall
	err   error
}

func (m *recordingManager) Install(_ context.Context, kind sponsordomain.AppKind, account sponsordomain.AccountID, note string) error {
	m.calls = append(m.calls, managerCall{op: "install", kind: kind, account: account, note: note})
	return m.err
}

func (m *recordingManager) Suspend(_ context.Context, kind sponsordomain.AppKind, account sponsordomain.AccountID) error {
	m.calls = append(m.calls, managerCall{op: "suspend", kind: kind, account: account})
	return m.err
}

func (m *recordingManager) Unsuspend(_ context.Context, kind sponsordomain.AppKind, account sponsordomain.AccountID) error {
	m.calls = append(m.calls, managerCall{op: "unsuspend", kind: kind, account: account})
	return m.err
}

func (m *recordingManager) Uninstall(_ context.Context, kind sponsordomain.AppKind, account sponsordomain.AccountID) error {
	m.calls = append(m.calls, managerCall{op: "uninstall", kind: kind, account: account})
	return m.err
}

func (m *recordingManager) Sponsor(_ context.Context, req sponsordomain.SponsorRequest) error {
	m.calls = append(m.calls, managerCall{op: "sponsor", sponsor: req})
	return m.err
}

func (m *recordingManager) Unsponsor(_ context.Context, sponsorableID, sponsorID string, cancelAt time.Time, note string) error {
	m.calls = append(m.calls, managerCall{op: "unsponsor", idPair: [2]string{sponsorableID, sponsorID}, cancelAt: cancelAt, note: note})
	return m.err
}

func (m *recordingManager) SponsorUpdate(_ context.Context, sponsorableID, sponsorID string, amount int64, note string) error {
	m.calls = append(m.calls, managerCall{op: "sponsor_update", idPair: [2]string{sponsorableID, sponsorID}, amount: amount, note: note})
	return m.err
}

const testSecret = "webhook-secret"

func TestWebhookRejectsBadSignature(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(`{}`))
	req.Header.Set("X-GitHub-Event", "installation")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if len(manager.calls) != 0 {
		t.Fatalf("manager must not be invoked on bad signature")
	}
}

func TestInstallationCreatedDispatchesInstall(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{"action":"created","installation":{"app_slug":"sponsorable","account":{"id":1234,"login":"kzu"}}}`
	resp := deliver(t, engine, "installation", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(manager.calls) != 1 {
		t.Fatalf("expected 1 manager call, got %d", len(manager.calls))
	}
	call := manager.calls[0]
	if call.op != "install" || call.kind != sponsordomain.AppKindSponsorable {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.account.ID != "1234" || call.account.Login != "kzu" {
		t.Fatalf("unexpected account: %+v", call.account)
	}
}

func TestInstallationSuspendAndDelete(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	for action, op := range map[string]string{
		"suspend":   "suspend",
		"unsuspend": "unsuspend",
		"deleted":   "uninstall",
	} {
		manager.calls = nil
		body := `{"action":"` + action + `","installation":{"app_slug":"admin","account":{"id":99,"login":"org"}}}`
		resp := deliver(t, engine, "installation", body)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", action, resp.Code)
		}
		if len(manager.calls) != 1 || manager.calls[0].op != op {
			t.Fatalf("%s: expected %s call, got %+v", action, op, manager.calls)
		}
		if manager.calls[0].kind != sponsordomain.AppKindAdmin {
			t.Fatalf("%s: expected admin kind", action)
		}
	}
}

func TestUnknownActionIsIgnored(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{"action":"new_permissions_accepted","installation":{"account":{"id":1,"login":"x"}}}`
	resp := deliver(t, engine, "installation", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(manager.calls) != 0 {
		t.Fatalf("ignored action must not reach the manager")
	}
}

func TestInvalidTransitionMapsToBadRequest(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)
	manager.err = sponsordomain.ErrUnknownInstallation

	body := `{"action":"suspend","installation":{"app_slug":"sponsorable","account":{"id":456,"login":"ghost"}}}`
	resp := deliver(t, engine, "installation", body)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid transition, got %d", resp.Code)
	}
}

func TestSponsorshipCreatedOneTimeComputesExpiry(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{
		"action": "created",
		"sponsorship": {
			"sponsorable": {"id": 1, "login": "kzu"},
			"sponsor": {"id": 2, "login": "stela"},
			"created_at": "2024-03-01T00:00:00Z",
			"tier": {"name": "gold", "monthly_price_in_dollars": 10, "is_one_time": true}
		}
	}`
	resp := deliver(t, engine, "sponsorship", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if len(manager.calls) != 1 || manager.calls[0].op != "sponsor" {
		t.Fatalf("expected sponsor call, got %+v", manager.calls)
	}
	req := manager.calls[0].sponsor
	if req.Amount != 10 {
		t.Fatalf("expected amount 10, got %d", req.Amount)
	}
	want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	if req.ExpiresAt == nil || !req.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, req.ExpiresAt)
	}
}

func TestSponsorshipRecurringHasNoExpiry(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{
		"action": "created",
		"sponsorship": {
			"sponsorable": {"id": 1, "login": "kzu"},
			"sponsor": {"id": 2, "login": "stela"},
			"created_at": "2024-03-01T00:00:00Z",
			"tier": {"name": "silver", "monthly_price_in_dollars": 5, "is_one_time": false}
		}
	}`
	resp := deliver(t, engine, "sponsorship", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if manager.calls[0].sponsor.ExpiresAt != nil {
		t.Fatalf("recurring sponsorship must be open-ended")
	}
}

func TestSponsorshipPendingCancellation(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{
		"action": "pending_cancellation",
		"effective_date": "2024-04-01T00:00:00Z",
		"sponsorship": {
			"sponsorable": {"id": 1, "login": "kzu"},
			"sponsor": {"id": 2, "login": "stela"},
			"tier": {"name": "gold", "monthly_price_in_dollars": 10}
		}
	}`
	resp := deliver(t, engine, "sponsorship", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	call := manager.calls[0]
	if call.op != "unsponsor" || call.idPair != [2]string{"1", "2"} {
		t.Fatalf("unexpected call: %+v", call)
	}
	want := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	if !call.cancelAt.Equal(want) {
		t.Fatalf("expected cancel at %v, got %v", want, call.cancelAt)
	}
}

func TestSponsorshipTierChanged(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	body := `{
		"action": "tier_changed",
		"sponsorship": {
			"sponsorable": {"id": 1, "login": "kzu"},
			"sponsor": {"id": 2, "login": "stela"},
			"tier": {"name": "platinum", "monthly_price_in_dollars": 50}
		}
	}`
	resp := deliver(t, engine, "sponsorship", body)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	call := manager.calls[0]
	if call.op != "sponsor_update" || call.amount != 50 {
		t.Fatalf("unexpected call: %+v", call)
	}
}

func TestUnknownEventTypeIsIgnored(t *testing.T) {
	engine, manager := newTestEngine(t, testSecret)

	resp := deliver(t, engine, "ping", `{"zen":"keep it simple"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if len(manager.calls) != 0 {
		t.Fatalf("ping must not reach the manager")
	}
}

func newTestEngine(t *testing.T, secret string) (*gin.Engine, *recordingManager) {
	t.Helper()
	manager := &recordingManager{}
	cfg := config.Config{WebhookSecret: secret}
	srv := NewServer(Params{Cfg: cfg, Log: zap.NewNop(), Manager: manager})
	engine := NewEngine(cfg)
	srv.RegisterRoutes(engine)
	return engine, manager
}

func deliver(t *testing.T, engine *gin.Engine, event, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", bytes.NewBufferString(body))
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-Hub-Signature-256", sign(testSecret, []byte(body)))
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
