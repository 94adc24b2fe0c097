package implementation

import (
	"context"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/mapper"
	"ai-textassist-be/internal/model"
	"ai-textassist-be/internal/repository/contract"
	"ai-textassist-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageMapper
}

func NewUsageRepository(db *gorm.DB) contract.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageMapper(),
	}
}

func (r *UsageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UsageRepositoryImpl) Create(ctx context.Context, record *entity.UsageRecord) error {
	m := r.mapper.ToModel(record)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*record = *r.mapper.ToEntity(m)
	return nil
}

func (r *UsageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.UsageRecord{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UsageRepositoryImpl) MarkConsumed(ctx context.Context, id uuid.UUID, modelName string, promptTokens, completionTokens int) error {
	return r.db.WithContext(ctx).Model(&model.UsageRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            string(entity.UsageStatusConsumed),
			"model":             modelName,
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
		}).Error
}

func (r *UsageRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.UsageRecord{}).Error
}
