package service

import (
	"context"
	"testing"
	"time"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/tier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday_UsesQuotaTimezone(t *testing.T) {
	tests := []struct {
		name string
		loc  *time.Location
		now  time.Time
		want string
	}{
		{"utc", time.UTC, time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), "2026-03-10"},
		{"ahead of utc", time.FixedZone("UTC+2", 2*3600), time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), "2026-03-11"},
		{"behind utc", time.FixedZone("UTC-5", -5*3600), time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), "2026-03-09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := NewEntitlementService(newMemStore(), tt.loc).(*entitlementService)
			es.now = func() time.Time { return tt.now }

			today := es.Today()
			assert.Equal(t, tt.want, today.Format("2006-01-02"))
			assert.Equal(t, time.UTC, today.Location())
		})
	}
}

func TestSnapshot(t *testing.T) {
	store := newMemStore()
	es := NewEntitlementService(store, time.UTC).(*entitlementService)
	es.now = func() time.Time { return fixedNow }
	ctx := context.Background()

	t.Run("free counts lifetime", func(t *testing.T) {
		user := store.addUser("free@example.com")
		store.addUsage(user.Id, fixedNow.AddDate(0, -1, 0), 4)
		store.addUsage(user.Id, fixedNow, 2)

		snap, err := es.Snapshot(ctx, store.NewUnitOfWork(ctx), user.Id)
		require.NoError(t, err)
		assert.Equal(t, tier.Free, snap.Tier)
		assert.Equal(t, 6, snap.Used)
		assert.Equal(t, 4, snap.Remaining)
		assert.True(t, snap.IsLifetime)
		assert.Equal(t, 2000, snap.MaxTextLength)
	})

	t.Run("paid counts today only", func(t *testing.T) {
		user := store.addUser("pro@example.com")
		expires := fixedNow.Add(time.Hour)
		store.addSubscription(&entity.Subscription{UserId: user.Id, Plan: tier.PlanProMonthly, Status: entity.SubscriptionStatusActive, ExpiresAt: &expires})
		store.addUsage(user.Id, fixedNow.AddDate(0, 0, -1), 400)
		store.addUsage(user.Id, fixedNow, 3)

		snap, err := es.Snapshot(ctx, store.NewUnitOfWork(ctx), user.Id)
		require.NoError(t, err)
		assert.Equal(t, tier.Pro, snap.Tier)
		assert.Equal(t, 3, snap.Used)
		assert.Equal(t, 497, snap.Remaining)
		assert.True(t, snap.CanPerformAction())
	})

	t.Run("over limit clamps at zero", func(t *testing.T) {
		user := store.addUser("over@example.com")
		store.addUsage(user.Id, fixedNow, 12)

		remaining, err := es.RemainingActions(ctx, user.Id)
		require.NoError(t, err)
		assert.Equal(t, 0, remaining)

		can, err := es.CanPerformAction(ctx, user.Id)
		require.NoError(t, err)
		assert.False(t, can)
	})

	t.Run("grace period resolves to free", func(t *testing.T) {
		user := store.addUser("grace@example.com")
		expires := fixedNow.Add(time.Hour)
		store.addSubscription(&entity.Subscription{UserId: user.Id, Plan: tier.PlanProMonthly, Status: entity.SubscriptionStatusGracePeriod, ExpiresAt: &expires})

		status, err := es.GetStatus(ctx, user.Id)
		require.NoError(t, err)
		assert.Equal(t, "free", status.Tier)
		assert.Equal(t, "free", status.Plan)
		assert.Equal(t, "grace_period", status.Status)
	})
}
