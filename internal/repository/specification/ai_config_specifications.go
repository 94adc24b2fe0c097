package specification

import (
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/tier"

	"gorm.io/gorm"
)

type ByFeatureTier struct {
	Feature entity.ActionType
	Tier    tier.Tier
}

func (s ByFeatureTier) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("feature = ? AND tier = ?", string(s.Feature), string(s.Tier))
}
