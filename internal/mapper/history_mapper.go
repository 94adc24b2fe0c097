package mapper

import (
	"encoding/json"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/model"

	"gorm.io/datatypes"
)

type HistoryMapper struct{}

func NewHistoryMapper() *HistoryMapper {
	return &HistoryMapper{}
}

func (m *HistoryMapper) ToEntity(h *model.HistoryRecord) *entity.HistoryRecord {
	if h == nil {
		return nil
	}
	var metadata map[string]interface{}
	if len(h.Metadata) > 0 {
		// Malformed metadata is dropped rather than failing the read.
		_ = json.Unmarshal(h.Metadata, &metadata)
	}
	return &entity.HistoryRecord{
		Id:             h.Id,
		UserId:         h.UserId,
		ActionType:     entity.ActionType(h.ActionType),
		OriginalText:   h.OriginalText,
		ResultText:     h.ResultText,
		TargetLanguage: h.TargetLanguage,
		Metadata:       metadata,
		IsFavorite:     h.IsFavorite,
		CreatedAt:      h.CreatedAt,
	}
}

func (m *HistoryMapper) ToModel(h *entity.HistoryRecord) *model.HistoryRecord {
	if h == nil {
		return nil
	}
	var metadata datatypes.JSON
	if h.Metadata != nil {
		if raw, err := json.Marshal(h.Metadata); err == nil {
			metadata = datatypes.JSON(raw)
		}
	}
	return &model.HistoryRecord{
		Id:             h.Id,
		UserId:         h.UserId,
		ActionType:     string(h.ActionType),
		OriginalText:   h.OriginalText,
		ResultText:     h.ResultText,
		TargetLanguage: h.TargetLanguage,
		Metadata:       metadata,
		IsFavorite:     h.IsFavorite,
		CreatedAt:      h.CreatedAt,
	}
}

func (m *HistoryMapper) ToEntities(items []*model.HistoryRecord) []*entity.HistoryRecord {
	out := make([]*entity.HistoryRecord, 0, len(items))
	for _, item := range items {
		out = append(out, m.ToEntity(item))
	}
	return out
}
