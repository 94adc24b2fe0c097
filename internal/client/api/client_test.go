package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/client/ledger"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/tier"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *entitlement.Cache, *kvstore.MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := kvstore.NewMemoryStore()
	cache := entitlement.NewCache(store, watermill.NopLogger{})
	t.Cleanup(func() { _ = cache.Close() })
	return NewClient(srv.URL, store, cache), cache, store
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func loggedIn(t *testing.T, store *kvstore.MemoryStore) {
	t.Helper()
	require.NoError(t, store.Set(TokenKey, []byte("token-1")))
}

func TestLogin(t *testing.T) {
	client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req dto.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ana@example.com", req.Email)

		writeJSON(w, http.StatusOK, serverutils.SuccessResponse("ok", dto.LoginResponse{
			AccessToken: "token-1",
			Entitlement: dto.EntitlementStatus{Tier: "pro", RemainingActions: 480, Status: "active"},
		}))
	})

	res, err := client.Login(context.Background(), "ana@example.com", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "token-1", res.AccessToken)

	raw, ok, err := store.Get(TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "token-1", string(raw))

	snap := cache.Snapshot()
	assert.Equal(t, entitlement.StateSynced, snap.State)
	assert.Equal(t, tier.Pro, snap.Tier)
	assert.Equal(t, 480, snap.RemainingActions)
	assert.True(t, snap.IsBackendSynced)
}

func TestCorrectAppliesRemaining(t *testing.T) {
	client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, serverutils.SuccessResponse("ok", dto.ActionResponse{
			ActionType:       "correct",
			Result:           "Fixed text.",
			RemainingActions: 7,
		}).WithRemaining(7))
	})
	loggedIn(t, store)

	res, err := client.Correct(context.Background(), "fixd text")
	require.NoError(t, err)
	assert.Equal(t, "Fixed text.", res.Result)
	assert.Equal(t, 7, cache.Snapshot().RemainingActions)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      string
		remaining *int
		want      error
	}{
		{"quota", http.StatusTooManyRequests, dto.ErrCodeDailyLimitReached, intPtr(0), ErrQuotaExceeded},
		{"too long", http.StatusUnprocessableEntity, dto.ErrCodeTextTooLong, intPtr(4), ErrTextTooLong},
		{"language", http.StatusForbidden, dto.ErrCodeLanguageNotAvailable, intPtr(4), ErrLanguageNotAvailable},
		{"ai failure", http.StatusBadGateway, dto.ErrCodeAIError, intPtr(4), ErrAIFailure},
		{"validation", http.StatusUnprocessableEntity, dto.ErrCodeValidation, nil, ErrValidation},
		{"store unavailable", http.StatusServiceUnavailable, dto.ErrCodeStoreUnavailable, nil, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				res := serverutils.ErrorResponse(tt.status, "nope").WithErrorCode(tt.code)
				res.RemainingActions = tt.remaining
				writeJSON(w, tt.status, res)
			})
			loggedIn(t, store)

			_, err := client.Translate(context.Background(), "hello", "ja")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
			if tt.remaining != nil {
				assert.Equal(t, *tt.remaining, cache.Snapshot().RemainingActions)
			}
		})
	}
}

func TestUpgradeRequired(t *testing.T) {
	assert.True(t, IsUpgradeRequired(&Error{Status: 429, Code: dto.ErrCodeDailyLimitReached}))
	assert.True(t, IsUpgradeRequired(&Error{Status: 403, Code: dto.ErrCodeLanguageNotAvailable}))
	assert.False(t, IsUpgradeRequired(&Error{Status: 422, Code: dto.ErrCodeTextTooLong}))
}

func TestUnauthorizedClearsSession(t *testing.T) {
	client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, serverutils.ErrorResponse(401, "expired").WithErrorCode(dto.ErrCodeUnauthorized))
	})
	loggedIn(t, store)
	require.NoError(t, cache.UpdateFromBackend(entitlement.Update{Tier: tier.Pro, RemainingActions: 300}))

	_, err := client.SubscriptionStatus(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, client.HasToken())

	snap := cache.Snapshot()
	assert.Equal(t, entitlement.StateUninitialized, snap.State)
	assert.Equal(t, tier.Free, snap.Tier)
}

func TestMissingTokenShortCircuits(t *testing.T) {
	called := false
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := client.Correct(context.Background(), "text")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.False(t, called)
}

func TestCancelledRequestLeavesCacheAlone(t *testing.T) {
	release := make(chan struct{})
	client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusOK, serverutils.SuccessResponse("ok", dto.ActionResponse{}).WithRemaining(1))
	})
	defer close(release)
	loggedIn(t, store)
	require.NoError(t, cache.UpdateFromBackend(entitlement.Update{Tier: tier.Free, RemainingActions: 5}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Correct(ctx, "text")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 5, cache.Snapshot().RemainingActions)
}

func TestTransportFailureIsTransient(t *testing.T) {
	store := kvstore.NewMemoryStore()
	cache := entitlement.NewCache(store, watermill.NopLogger{})
	defer cache.Close()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewClient(srv.URL, store, cache)
	loggedIn(t, store)

	_, err := client.VerifyPurchase(context.Background(), ledger.Event{TransactionID: "t1", OriginalTransactionID: "o1", ProductID: tier.ProductProMonthly})
	assert.True(t, IsTransient(err), "got %v", err)
}

func TestVerifyPurchaseUpdatesCache(t *testing.T) {
	expires := time.Date(2026, 11, 16, 0, 0, 0, 0, time.UTC)
	client, cache, store := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req dto.VerifyPurchaseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t1", req.TransactionId)
		assert.Equal(t, "o1", req.OriginalTransactionId)

		writeJSON(w, http.StatusOK, serverutils.SuccessResponse("ok", dto.VerifyPurchaseResponse{
			Tier: "starter", Plan: "starter_monthly", Status: "active", ExpiresAt: &expires, RemainingActions: 100,
		}).WithRemaining(100))
	})
	loggedIn(t, store)

	res, err := client.VerifyPurchase(context.Background(), ledger.Event{TransactionID: "t1", OriginalTransactionID: "o1", ProductID: tier.ProductStarterMonthly})
	require.NoError(t, err)
	assert.Equal(t, "active", res.Status)

	snap := cache.Snapshot()
	assert.Equal(t, tier.Starter, snap.Tier)
	assert.Equal(t, 100, snap.RemainingActions)
	require.NotNil(t, snap.ExpiresAt)
	assert.True(t, expires.Equal(*snap.ExpiresAt))
}

func intPtr(v int) *int { return &v }
