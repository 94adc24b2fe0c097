package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/tier"
	"ai-textassist-be/pkg/appstore"
	"ai-textassist-be/pkg/events"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier answers from a table keyed by transaction id.
type stubVerifier struct {
	txns  map[string]*appstore.Transaction
	err   error
	calls int
}

func (v *stubVerifier) Verify(_ context.Context, claim appstore.Claim) (*appstore.Transaction, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	txn, ok := v.txns[claim.TransactionID]
	if !ok {
		return nil, appstore.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (v *stubVerifier) add(id, original, product string, expires time.Time) *appstore.Transaction {
	txn := &appstore.Transaction{
		TransactionID:         id,
		OriginalTransactionID: original,
		ProductID:             product,
		Environment:           "Sandbox",
		PurchaseDate:          fixedNow.Add(-time.Hour),
		ExpiresDate:           &expires,
		SignedPayload:         "header.payload.signature",
	}
	v.txns[id] = txn
	return txn
}

type subscriptionHarness struct {
	store     *memStore
	verifier  *stubVerifier
	publisher *recordingPublisher
	service   SubscriptionService
}

func newSubscriptionHarness(t *testing.T) *subscriptionHarness {
	t.Helper()
	store := newMemStore()
	verifier := &stubVerifier{txns: map[string]*appstore.Transaction{}}
	publisher := &recordingPublisher{}
	es := NewEntitlementService(store, time.UTC).(*entitlementService)
	es.now = func() time.Time { return fixedNow }

	svc := NewSubscriptionService(store, verifier, es, publisher, NewMetrics(prometheus.NewRegistry()), logger.NewNopLogger()).(*subscriptionService)
	svc.now = func() time.Time { return fixedNow }

	return &subscriptionHarness{store: store, verifier: verifier, publisher: publisher, service: svc}
}

func verifyRequest(txn *appstore.Transaction) *dto.VerifyPurchaseRequest {
	return &dto.VerifyPurchaseRequest{
		TransactionId:         txn.TransactionID,
		OriginalTransactionId: txn.OriginalTransactionID,
		ProductId:             txn.ProductID,
	}
}

func TestVerifyPurchase_Active(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	txn := h.verifier.add("1000", "1000", tier.ProductProMonthly, fixedNow.Add(30*24*time.Hour))

	res, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(txn))
	require.NoError(t, err)

	assert.Equal(t, "pro", res.Tier)
	assert.Equal(t, string(tier.PlanProMonthly), res.Plan)
	assert.Equal(t, "active", res.Status)
	assert.Equal(t, 500, res.RemainingActions)
	require.Len(t, h.store.subs, 1)
	assert.JSONEq(t, `{"signed_transaction":"header.payload.signature","environment":"Sandbox"}`, string(h.store.subs[0].Receipt))

	assert.Eventually(t, func() bool {
		types := h.publisher.Types()
		return len(types) == 1 && types[0] == events.TypeSubscriptionVerified
	}, time.Second, 10*time.Millisecond)
}

func TestVerifyPurchase_IdempotentForSameUser(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	txn := h.verifier.add("1000", "1000", tier.ProductStarterMonthly, fixedNow.Add(30*24*time.Hour))

	first, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(txn))
	require.NoError(t, err)
	second, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(txn))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, h.store.subs, 1)
}

func TestVerifyPurchase_ClaimedByAnotherUser(t *testing.T) {
	h := newSubscriptionHarness(t)
	owner := h.store.addUser("owner@example.com")
	other := h.store.addUser("other@example.com")
	txn := h.verifier.add("1000", "1000", tier.ProductProMonthly, fixedNow.Add(30*24*time.Hour))

	_, err := h.service.VerifyPurchase(context.Background(), owner.Id, verifyRequest(txn))
	require.NoError(t, err)

	_, err = h.service.VerifyPurchase(context.Background(), other.Id, verifyRequest(txn))
	requireActionError(t, err, http.StatusConflict, dto.ErrCodeTransactionClaimed)
	assert.Len(t, h.store.subs, 1)
	assert.Equal(t, owner.Id, h.store.subs[0].UserId)
}

func TestVerifyPurchase_RevokedBecomesCancelled(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	txn := h.verifier.add("1000", "1000", tier.ProductProMonthly, fixedNow.Add(30*24*time.Hour))
	revoked := fixedNow.Add(-10 * time.Minute)
	txn.RevocationDate = &revoked

	res, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(txn))
	require.NoError(t, err)

	assert.Equal(t, "cancelled", res.Status)
	assert.Equal(t, "free", res.Tier)
	require.NotNil(t, res.CancelledAt)
	assert.True(t, res.CancelledAt.Equal(revoked))
	assert.True(t, res.ExpiresAt.Equal(revoked))
}

func TestVerifyPurchase_Expired(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	txn := h.verifier.add("1000", "1000", tier.ProductProMonthly, fixedNow.Add(-time.Hour))

	res, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(txn))
	require.NoError(t, err)
	assert.Equal(t, "expired", res.Status)
	assert.Equal(t, "free", res.Tier)
	assert.Equal(t, 10, res.RemainingActions)
}

func TestVerifyPurchase_NewerRecordSupersedes(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	starter := h.verifier.add("1000", "1000", tier.ProductStarterMonthly, fixedNow.Add(30*24*time.Hour))
	pro := h.verifier.add("2000", "2000", tier.ProductProMonthly, fixedNow.Add(30*24*time.Hour))

	_, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(starter))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	res, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(pro))
	require.NoError(t, err)
	assert.Equal(t, "pro", res.Tier)

	// re-verifying the older, unchanged purchase does not demote the user
	time.Sleep(2 * time.Millisecond)
	res, err = h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(starter))
	require.NoError(t, err)
	assert.Equal(t, "pro", res.Tier)
	assert.Len(t, h.store.subs, 2)
}

func TestVerifyPurchase_ReverifyingRevokedOldPurchaseKeepsNewerTier(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	starter := h.verifier.add("1000", "1000", tier.ProductStarterMonthly, fixedNow.Add(30*24*time.Hour))
	pro := h.verifier.add("2000", "2000", tier.ProductProMonthly, fixedNow.Add(30*24*time.Hour))
	pro.PurchaseDate = fixedNow.Add(-30 * time.Minute)

	_, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(starter))
	require.NoError(t, err)
	res, err := h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(pro))
	require.NoError(t, err)
	require.Equal(t, "pro", res.Tier)

	revoked := fixedNow.Add(-10 * time.Minute)
	starter.RevocationDate = &revoked
	time.Sleep(2 * time.Millisecond)
	res, err = h.service.VerifyPurchase(context.Background(), user.Id, verifyRequest(starter))
	require.NoError(t, err)
	assert.Equal(t, "pro", res.Tier)

	status, err := h.service.GetStatus(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "pro", status.Tier)
	assert.Equal(t, 500, status.RemainingActions)

	var updated bool
	for _, sub := range h.store.subs {
		if sub.TransactionId == "1000" {
			updated = sub.Status == entity.SubscriptionStatusCancelled
		}
	}
	assert.True(t, updated, "old row is still updated in place")
}

func TestVerifyPurchase_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(h *subscriptionHarness) *dto.VerifyPurchaseRequest
		status int
		code   string
	}{
		{
			name: "unknown product",
			setup: func(h *subscriptionHarness) *dto.VerifyPurchaseRequest {
				return &dto.VerifyPurchaseRequest{TransactionId: "1", OriginalTransactionId: "1", ProductId: "com.other"}
			},
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeValidation,
		},
		{
			name: "transaction not found",
			setup: func(h *subscriptionHarness) *dto.VerifyPurchaseRequest {
				return &dto.VerifyPurchaseRequest{TransactionId: "404", OriginalTransactionId: "404", ProductId: tier.ProductProMonthly}
			},
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeValidation,
		},
		{
			name: "product mismatch",
			setup: func(h *subscriptionHarness) *dto.VerifyPurchaseRequest {
				txn := h.verifier.add("1000", "1000", tier.ProductStarterMonthly, fixedNow.Add(time.Hour))
				req := verifyRequest(txn)
				req.ProductId = tier.ProductProMonthly
				return req
			},
			status: http.StatusUnprocessableEntity,
			code:   dto.ErrCodeValidation,
		},
		{
			name: "store unreachable",
			setup: func(h *subscriptionHarness) *dto.VerifyPurchaseRequest {
				h.verifier.err = errors.New("dial tcp: i/o timeout")
				return &dto.VerifyPurchaseRequest{TransactionId: "1", OriginalTransactionId: "1", ProductId: tier.ProductProMonthly}
			},
			status: http.StatusServiceUnavailable,
			code:   dto.ErrCodeStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newSubscriptionHarness(t)
			user := h.store.addUser("a@example.com")

			_, err := h.service.VerifyPurchase(context.Background(), user.Id, tt.setup(h))
			requireActionError(t, err, tt.status, tt.code)
			assert.Empty(t, h.store.subs)
		})
	}
}

func TestGetStatus_ReportsCancelledButActive(t *testing.T) {
	h := newSubscriptionHarness(t)
	user := h.store.addUser("a@example.com")
	expires := fixedNow.Add(48 * time.Hour)
	cancelled := fixedNow.Add(-time.Hour)
	h.store.addSubscription(&entity.Subscription{
		UserId:      user.Id,
		Plan:        tier.PlanStarterMonthly,
		Status:      entity.SubscriptionStatusCancelled,
		ExpiresAt:   &expires,
		CancelledAt: &cancelled,
	})
	h.store.addUsage(user.Id, fixedNow, 4)
	h.store.addUsage(user.Id, fixedNow.AddDate(0, 0, -2), 50)

	status, err := h.service.GetStatus(context.Background(), user.Id)
	require.NoError(t, err)
	assert.Equal(t, "starter", status.Tier)
	assert.True(t, status.IsCancelledButActive)
	assert.Equal(t, 96, status.RemainingActions)
	assert.Equal(t, 4, status.UsageToday)
	assert.Equal(t, 54, status.UsageLifetime)
	assert.Equal(t, 100, status.DailyLimit)
	assert.False(t, status.IsLifetimeLimit)
}
