package model

import (
	"time"

	"github.com/google/uuid"
)

type UsageRecord struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId           uuid.UUID `gorm:"type:uuid;not null;index:idx_usage_user_date"`
	ActionType       string    `gorm:"type:varchar(50);not null"`
	UsageDate        time.Time `gorm:"type:date;not null;index:idx_usage_user_date"`
	Status           string    `gorm:"type:varchar(20);not null;default:'reserved'"`
	Model            string    `gorm:"type:varchar(255)"`
	PromptTokens     int       `gorm:"default:0"`
	CompletionTokens int       `gorm:"default:0"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (UsageRecord) TableName() string {
	return "usage_records"
}
