package mapper

import (
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/model"
	"ai-textassist-be/internal/tier"
)

type AiModelConfigMapper struct{}

func NewAiModelConfigMapper() *AiModelConfigMapper {
	return &AiModelConfigMapper{}
}

func (m *AiModelConfigMapper) ToEntity(c *model.AiModelConfig) *entity.AiModelConfig {
	if c == nil {
		return nil
	}
	return &entity.AiModelConfig{
		Id:        c.Id,
		Feature:   entity.ActionType(c.Feature),
		Tier:      tier.Tier(c.Tier),
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *AiModelConfigMapper) ToModel(c *entity.AiModelConfig) *model.AiModelConfig {
	if c == nil {
		return nil
	}
	return &model.AiModelConfig{
		Id:        c.Id,
		Feature:   string(c.Feature),
		Tier:      string(c.Tier),
		Model:     c.Model,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func (m *AiModelConfigMapper) ToEntities(items []*model.AiModelConfig) []*entity.AiModelConfig {
	out := make([]*entity.AiModelConfig, 0, len(items))
	for _, item := range items {
		out = append(out, m.ToEntity(item))
	}
	return out
}
