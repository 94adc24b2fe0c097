package events

import (
	"context"
	"time"
)

const (
	TypeActionPerformed      = "ACTION_PERFORMED"
	TypeSubscriptionVerified = "SUBSCRIPTION_VERIFIED"
	TypeUserRegistered       = "USER_REGISTERED"
	TypeModelConfigUpdated   = "MODEL_CONFIG_UPDATED"
)

// Publisher is implemented by the NATS publisher. Services accept it so the bus can be absent.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

func NewActionPerformed(userId, actionType, tier, model string, remaining int) BaseEvent {
	return BaseEvent{
		Type: TypeActionPerformed,
		Data: map[string]interface{}{
			"user_id":           userId,
			"action_type":       actionType,
			"tier":              tier,
			"model":             model,
			"remaining_actions": remaining,
		},
		OccurredAt: time.Now(),
	}
}

func NewSubscriptionVerified(userId, transactionId, productId, status, tier string) BaseEvent {
	return BaseEvent{
		Type: TypeSubscriptionVerified,
		Data: map[string]interface{}{
			"user_id":        userId,
			"transaction_id": transactionId,
			"product_id":     productId,
			"status":         status,
			"tier":           tier,
		},
		OccurredAt: time.Now(),
	}
}

func NewUserRegistered(userId, email string) BaseEvent {
	return BaseEvent{
		Type: TypeUserRegistered,
		Data: map[string]interface{}{
			"user_id": userId,
			"email":   email,
		},
		OccurredAt: time.Now(),
	}
}

func NewModelConfigUpdated(feature, tier, model string) BaseEvent {
	return BaseEvent{
		Type: TypeModelConfigUpdated,
		Data: map[string]interface{}{
			"feature": feature,
			"tier":    tier,
			"model":   model,
		},
		OccurredAt: time.Now(),
	}
}
