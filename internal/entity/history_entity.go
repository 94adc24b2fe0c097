// FILE: internal/entity/history_entity.go
package entity

import (
	"time"

	"github.com/google/uuid"
)

type HistoryRecord struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	ActionType     ActionType
	OriginalText   string
	ResultText     string
	TargetLanguage *string
	Metadata       map[string]interface{}
	IsFavorite     bool
	CreatedAt      time.Time
}
