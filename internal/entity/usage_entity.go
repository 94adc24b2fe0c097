// FILE: internal/entity/usage_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type ActionType string

const (
	ActionTypeCorrection  ActionType = "correction"
	ActionTypeTranslation ActionType = "translation"
)

func (a ActionType) IsValid() bool {
	return a == ActionTypeCorrection || a == ActionTypeTranslation
}

type UsageStatus string

const (
	// UsageStatusReserved marks a slot taken under the per-user lock before the AI call.
	UsageStatusReserved UsageStatus = "reserved"
	// UsageStatusConsumed marks a completed action.
	UsageStatusConsumed UsageStatus = "consumed"
)

// UsageRecord is one billable action. Reserved and consumed rows both count
// toward quota.
type UsageRecord struct {
	Id               uuid.UUID
	UserId           uuid.UUID
	ActionType       ActionType
	UsageDate        time.Time // calendar day at 00:00 UTC
	Status           UsageStatus
	Model            string
	PromptTokens     int
	CompletionTokens int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
