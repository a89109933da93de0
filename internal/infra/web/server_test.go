//go:build !integration

package web

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"notes-credit-ledger/internal/domain/model"
	"notes-credit-ledger/internal/infra/i18n"
	red "notes-credit-ledger/internal/infra/redis"
	"notes-credit-ledger/internal/infra/security"
	"notes-credit-ledger/internal/usecase"
)

type stubProber struct {
	seconds float64
	err     error
}

func (s *stubProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return s.seconds, s.err
}

type webFixture struct {
	router http.Handler
	auth   *AuthManager
	users  *memUserRepo
	plans  *memPlanRepo
	subs   *memSubscriptionRepo
	txns   *memTxnRepo
	notes  *memNoteRepo
	enc    *security.EncryptionService
	redis  *fakeRedis
}

func newWebFixture(t *testing.T, rateLimit int) *webFixture {
	t.Helper()
	logger := newTestLogger()

	users := newMemUserRepo()
	plans := newMemPlanRepo()
	subs := newMemSubscriptionRepo()
	txns := newMemTxnRepo()
	notes := newMemNoteRepo()
	tm := newMockTxManager()

	balanceUC := usecase.NewBalanceUseCase(subs, nil, logger)
	costUC := usecase.NewCostUseCase(notes, &stubProber{seconds: 60}, model.MinutesFromFloat(0.5), logger)
	ledgerUC := usecase.NewLedgerUseCase(users, subs, txns, tm, costUC, balanceUC, nil, usecase.RefundPolicyStrict, logger)
	subUC := usecase.NewSubscriptionUseCase(users, plans, subs, txns, tm, nil, logger)

	enc, err := security.NewEncryptionService("0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("encryption service: %v", err)
	}
	translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		t.Fatalf("translator: %v", err)
	}

	fr := newFakeRedis()
	auth := NewAuthManager("test-admin-jwt-secret-please-change", false, "", time.Minute)
	server := NewServer(balanceUC, ledgerUC, subUC, notes, plans, enc, translator,
		red.NewRateLimiter(fr), auth, "test-admin-key", rateLimit, logger)

	return &webFixture{
		router: server.Router(),
		auth:   auth,
		users:  users,
		plans:  plans,
		subs:   subs,
		txns:   txns,
		notes:  notes,
		enc:    enc,
		redis:  fr,
	}
}

func (f *webFixture) userToken(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.auth.MintUserToken(userID, time.Minute)
	if err != nil {
		t.Fatalf("mint user token: %v", err)
	}
	return tok
}

func (f *webFixture) seedUser(t *testing.T, id string) {
	t.Helper()
	u, err := model.NewUser(id, "Test Student", "+989120000000")
	if err != nil {
		t.Fatalf("new user: %v", err)
	}
	if err := f.users.Save(context.Background(), nil, u); err != nil {
		t.Fatalf("save user: %v", err)
	}
}

func (f *webFixture) seedSub(t *testing.T, id, userID string, max model.Minutes, ttl time.Duration) {
	t.Helper()
	now := time.Now().UTC()
	sub := &model.UserSubscription{
		ID:         id,
		UserID:     userID,
		PlanID:     "plan-1",
		StartAt:    now.Add(-time.Hour),
		EndAt:      now.Add(ttl),
		MaxMinutes: max,
		Status:     model.SubscriptionStatusActive,
		CreatedAt:  now,
	}
	if err := f.subs.Save(context.Background(), nil, sub); err != nil {
		t.Fatalf("save sub: %v", err)
	}
}

func TestUserAuthMiddleware(t *testing.T) {
	f := newWebFixture(t, 0)

	t.Run("no token -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("garbage token -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
		req.Header.Set("Authorization", "Bearer invalid.jwt.token")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("valid token -> 200", func(t *testing.T) {
		f.seedUser(t, "user-1")
		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
		req.Header.Set("Authorization", "Bearer "+f.userToken(t, "user-1"))
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})
}

func TestAdminLoginLogoutFlow(t *testing.T) {
	f := newWebFixture(t, 0)

	var sessionCookie *http.Cookie

	t.Run("login with wrong key -> 401", func(t *testing.T) {
		body := bytes.NewBufferString(`{"key":"wrong"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("login with correct key -> 204 + cookie set", func(t *testing.T) {
		body := bytes.NewBufferString(`{"key":"test-admin-key"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/login", body)
		req.Header.Set("content-type", "application/json")
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
		for _, c := range rr.Result().Cookies() {
			if c.Name == "admin_session" {
				sessionCookie = c
				break
			}
		}
		if sessionCookie == nil || sessionCookie.Value == "" {
			t.Fatal("expected admin_session cookie")
		}
	})

	t.Run("protected admin route without credentials -> 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credits/bonus", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("protected admin route with cookie passes auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/credits/bonus", bytes.NewBufferString(`{}`))
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		// Empty body fails validation, not authentication.
		if rr.Code == http.StatusUnauthorized {
			t.Fatalf("expected auth to pass, got 401")
		}
	})

	t.Run("logout -> 204", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/auth/logout", nil)
		req.AddCookie(sessionCookie)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	f := newWebFixture(t, 2)
	f.seedUser(t, "user-1")
	token := f.userToken(t, "user-1")

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/credits/balance", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		f.router.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := do(); code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", code)
	}
	if code := do(); code != http.StatusOK {
		t.Fatalf("second request: expected 200, got %d", code)
	}
	if code := do(); code != http.StatusTooManyRequests {
		t.Fatalf("third request: expected 429, got %d", code)
	}
}

func TestHealthz(t *testing.T) {
	f := newWebFixture(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
