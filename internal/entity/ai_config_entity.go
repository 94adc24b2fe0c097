package entity

import (
	"time"

	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
)

// AiModelConfig selects the provider model used for a feature on a tier.
type AiModelConfig struct {
	Id        uuid.UUID
	Feature   ActionType
	Tier      tier.Tier
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
