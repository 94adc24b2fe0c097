package dto

import (
	"time"

	"github.com/google/uuid"
)

type HistoryItem struct {
	Id             uuid.UUID              `json:"id"`
	ActionType     string                 `json:"action_type"`
	OriginalText   string                 `json:"original_text"`
	ResultText     string                 `json:"result_text"`
	TargetLanguage *string                `json:"target_language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	IsFavorite     bool                   `json:"is_favorite"`
	CreatedAt      time.Time              `json:"created_at"`
}

type HistoryListRequest struct {
	Limit     int  `query:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int  `query:"offset" validate:"omitempty,min=0"`
	Favorites bool `query:"favorites"`
}

type HistoryListResponse struct {
	Items []HistoryItem `json:"items"`
	Total int64         `json:"total"`
}

type SetFavoriteRequest struct {
	IsFavorite *bool `json:"is_favorite" validate:"required"`
}
