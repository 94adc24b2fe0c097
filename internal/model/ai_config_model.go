package model

import (
	"time"

	"github.com/google/uuid"
)

type AiModelConfig struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Feature   string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_model_feature_tier"`
	Tier      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_model_feature_tier"`
	Model     string    `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (AiModelConfig) TableName() string {
	return "ai_model_configs"
}
