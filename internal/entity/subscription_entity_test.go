package entity

import (
	"testing"
	"time"

	"ai-textassist-be/internal/tier"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionEffectiveTier(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	inAnHour := now.Add(time.Hour)
	anHourAgo := now.Add(-time.Hour)

	tests := []struct {
		name string
		sub  *Subscription
		want tier.Tier
	}{
		{"no subscription", nil, tier.Free},
		{"active and unexpired", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusActive, ExpiresAt: &inAnHour}, tier.Pro},
		{"active but expired", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusActive, ExpiresAt: &anHourAgo}, tier.Free},
		{"cancelled but active", &Subscription{Plan: tier.PlanStarterMonthly, Status: SubscriptionStatusCancelled, ExpiresAt: &inAnHour}, tier.Starter},
		{"cancelled and expired", &Subscription{Plan: tier.PlanStarterMonthly, Status: SubscriptionStatusCancelled, ExpiresAt: &anHourAgo}, tier.Free},
		{"grace period", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusGracePeriod, ExpiresAt: &inAnHour}, tier.Free},
		{"expired status", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusExpired, ExpiresAt: &inAnHour}, tier.Free},
		{"no expiry", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusActive}, tier.Free},
		{"expires exactly now", &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusActive, ExpiresAt: &now}, tier.Free},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.EffectiveTier(now))
		})
	}
}

func TestIsCancelledButActive(t *testing.T) {
	now := time.Now()
	future := now.Add(24 * time.Hour)
	sub := &Subscription{Plan: tier.PlanProMonthly, Status: SubscriptionStatusCancelled, ExpiresAt: &future}
	assert.True(t, sub.IsCancelledButActive(now))

	sub.Status = SubscriptionStatusActive
	assert.False(t, sub.IsCancelledButActive(now))
}
