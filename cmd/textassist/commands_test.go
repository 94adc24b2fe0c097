package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"ai-textassist-be/internal/client/api"
	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend answers the handful of endpoints the CLI calls.
type fakeBackend struct {
	mu        sync.Mutex
	remaining int
	verified  []dto.VerifyPurchaseRequest
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	write := func(status int, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
	status := dto.EntitlementStatus{Tier: "free", RemainingActions: b.remaining, DailyLimit: 10, IsLifetimeLimit: true, MaxTextLength: 2000}

	switch r.URL.Path {
	case "/api/auth/login":
		write(http.StatusOK, serverutils.SuccessResponse("ok", dto.LoginResponse{
			AccessToken: "token-1",
			User:        dto.UserDTO{Email: "ana@example.com"},
			Entitlement: status,
		}))
	case "/api/subscription/status":
		write(http.StatusOK, serverutils.SuccessResponse("ok", status).WithRemaining(b.remaining))
	case "/api/actions/correct":
		if b.remaining == 0 {
			write(http.StatusTooManyRequests, serverutils.ErrorResponse(429, "limit").
				WithErrorCode(dto.ErrCodeDailyLimitReached).WithLimit(10).WithRemaining(0))
			return
		}
		b.remaining--
		write(http.StatusOK, serverutils.SuccessResponse("ok", dto.ActionResponse{
			ActionType: "correct", Result: "Hello, world.", RemainingActions: b.remaining,
		}).WithRemaining(b.remaining))
	case "/api/subscription/verify":
		var req dto.VerifyPurchaseRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.verified = append(b.verified, req)
		b.remaining = 500
		write(http.StatusOK, serverutils.SuccessResponse("ok", dto.VerifyPurchaseResponse{
			Tier: "pro", Plan: "pro_monthly", Status: "active", RemainingActions: 500,
		}).WithRemaining(500))
	default:
		write(http.StatusNotFound, serverutils.ErrorResponse(404, "not found"))
	}
}

func (b *fakeBackend) Verified() []dto.VerifyPurchaseRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]dto.VerifyPurchaseRequest(nil), b.verified...)
}

func run(t *testing.T, home, url string, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--home", home, "--api", url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestLoginCorrectAndQuota(t *testing.T) {
	backend := &fakeBackend{remaining: 1}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	home := t.TempDir()

	out, err := run(t, home, srv.URL, "login", "--email", "ana@example.com", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as ana@example.com")
	assert.Contains(t, out, "Remaining: 1 of 10 (lifetime)")

	out, err = run(t, home, srv.URL, "correct", "hello", "world")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello, world.")
	assert.Contains(t, out, "0 action(s) left")

	out, err = run(t, home, srv.URL, "correct", "again")
	require.Error(t, err)
	assert.Contains(t, out, "You have used all 10 actions.")
	assert.Contains(t, out, "textassist purchase")
}

func TestPurchaseWhileLoggedOutSyncsOnLogin(t *testing.T) {
	backend := &fakeBackend{remaining: 10}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	home := t.TempDir()

	out, err := run(t, home, srv.URL, "purchase", "pro")
	require.NoError(t, err)
	assert.Contains(t, out, "will sync")
	assert.Empty(t, backend.Verified())

	out, err = run(t, home, srv.URL, "login", "--email", "ana@example.com", "--password", "secret-pass")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 1 pending purchase(s)")

	verified := backend.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, "textassist.pro.monthly", verified[0].ProductId)

	out, err = run(t, home, srv.URL, "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "waiting to sync")
}

func TestQueuedPurchaseReplaysOnNextStart(t *testing.T) {
	backend := &fakeBackend{remaining: 10}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	home := t.TempDir()

	_, err := run(t, home, srv.URL, "purchase", "starter")
	require.NoError(t, err)
	require.Empty(t, backend.Verified())

	// a session restored from disk, not a fresh login
	store, err := kvstore.NewFileStore(home)
	require.NoError(t, err)
	require.NoError(t, store.Set(api.TokenKey, []byte("token-1")))

	out, err := run(t, home, srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Synced 1 pending purchase(s)")
	assert.NotContains(t, out, "waiting to sync")

	verified := backend.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, "textassist.starter.monthly", verified[0].ProductId)

	out, err = run(t, home, srv.URL, "status")
	require.NoError(t, err)
	assert.NotContains(t, out, "Synced")
	assert.Len(t, backend.Verified(), 1)
}

func TestRenewalDeliveredThroughListener(t *testing.T) {
	backend := &fakeBackend{remaining: 10}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	home := t.TempDir()

	_, err := run(t, home, srv.URL, "login", "--email", "ana@example.com", "--password", "secret-pass")
	require.NoError(t, err)

	out, err := run(t, home, srv.URL, "renew", "pro")
	require.NoError(t, err)
	assert.Contains(t, out, "processed")

	verified := backend.Verified()
	require.Len(t, verified, 1)
	assert.Equal(t, "textassist.pro.monthly", verified[0].ProductId)
}

func TestRenewalWhileLoggedOutIsQueued(t *testing.T) {
	backend := &fakeBackend{remaining: 10}
	srv := httptest.NewServer(backend)
	defer srv.Close()
	home := t.TempDir()

	out, err := run(t, home, srv.URL, "renew", "starter")
	require.NoError(t, err)
	assert.Contains(t, out, "will sync on the next run")
	assert.Empty(t, backend.Verified())
}

func TestStatusOfflineFallsBackToCache(t *testing.T) {
	backend := &fakeBackend{remaining: 4}
	srv := httptest.NewServer(backend)
	home := t.TempDir()

	_, err := run(t, home, srv.URL, "login", "--email", "ana@example.com", "--password", "secret-pass")
	require.NoError(t, err)
	srv.Close()

	out, err := run(t, home, srv.URL, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Backend unreachable, showing cached plan")
	assert.Contains(t, out, "Remaining: 4 of 10")
}

func TestProductFor(t *testing.T) {
	p, err := productFor("Pro")
	require.NoError(t, err)
	assert.Equal(t, "textassist.pro.monthly", p)

	_, err = productFor("gold")
	assert.Error(t, err)
}
