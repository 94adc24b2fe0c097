// FILE: internal/entity/subscription_entity.go
package entity

import (
	"time"

	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive      SubscriptionStatus = "active"
	SubscriptionStatusGracePeriod SubscriptionStatus = "grace_period"
	SubscriptionStatusCancelled   SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired     SubscriptionStatus = "expired"
)

// Subscription is one verified purchase for a user. Newer records supersede
// older ones; rows are never deleted.
type Subscription struct {
	Id                    uuid.UUID
	UserId                uuid.UUID
	Plan                  tier.Plan
	Status                SubscriptionStatus
	StartsAt              time.Time
	ExpiresAt             *time.Time
	CancelledAt           *time.Time
	TransactionId         string
	OriginalTransactionId string
	ProductId             string
	Receipt               []byte // opaque signed payload from the store
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// EffectiveTier resolves the tier this record grants at now.
// Only active records, or cancelled ones that have not reached expires_at yet,
// grant their plan. Everything else is free.
func (s *Subscription) EffectiveTier(now time.Time) tier.Tier {
	if s == nil {
		return tier.Free
	}
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusCancelled {
		return tier.Free
	}
	if s.ExpiresAt == nil || !s.ExpiresAt.After(now) {
		return tier.Free
	}
	return tier.TierForPlan(s.Plan)
}

// IsCancelledButActive is true while a cancelled subscription still runs to its expiry.
func (s *Subscription) IsCancelledButActive(now time.Time) bool {
	return s != nil &&
		s.Status == SubscriptionStatusCancelled &&
		s.ExpiresAt != nil && s.ExpiresAt.After(now)
}
