package contract

import (
	"context"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"
)

type AiModelConfigRepository interface {
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiModelConfig, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiModelConfig, error)
	// Upsert inserts or replaces the model for config.Feature and config.Tier.
	Upsert(ctx context.Context, config *entity.AiModelConfig) error
}
