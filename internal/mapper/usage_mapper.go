package mapper

import (
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/model"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func (m *UsageMapper) ToEntity(u *model.UsageRecord) *entity.UsageRecord {
	if u == nil {
		return nil
	}
	return &entity.UsageRecord{
		Id:               u.Id,
		UserId:           u.UserId,
		ActionType:       entity.ActionType(u.ActionType),
		UsageDate:        u.UsageDate,
		Status:           entity.UsageStatus(u.Status),
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (m *UsageMapper) ToModel(u *entity.UsageRecord) *model.UsageRecord {
	if u == nil {
		return nil
	}
	return &model.UsageRecord{
		Id:               u.Id,
		UserId:           u.UserId,
		ActionType:       string(u.ActionType),
		UsageDate:        u.UsageDate,
		Status:           string(u.Status),
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (m *UsageMapper) ToEntities(items []*model.UsageRecord) []*entity.UsageRecord {
	out := make([]*entity.UsageRecord, 0, len(items))
	for _, item := range items {
		out = append(out, m.ToEntity(item))
	}
	return out
}
