package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type HistoryRecord struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID      `gorm:"type:uuid;not null;index"`
	ActionType     string         `gorm:"type:varchar(50);not null"`
	OriginalText   string         `gorm:"type:text;not null"`
	ResultText     string         `gorm:"type:text;not null"`
	TargetLanguage *string        `gorm:"type:varchar(16)"`
	Metadata       datatypes.JSON `gorm:"type:jsonb"`
	IsFavorite     bool           `gorm:"default:false"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
}

func (HistoryRecord) TableName() string {
	return "history_records"
}
