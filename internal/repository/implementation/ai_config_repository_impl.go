package implementation

import (
	"context"
	"errors"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/mapper"
	"ai-textassist-be/internal/model"
	"ai-textassist-be/internal/repository/contract"
	"ai-textassist-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AiModelConfigRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AiModelConfigMapper
}

func NewAiModelConfigRepository(db *gorm.DB) contract.AiModelConfigRepository {
	return &AiModelConfigRepositoryImpl{
		db:     db,
		mapper: mapper.NewAiModelConfigMapper(),
	}
}

func (r *AiModelConfigRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *AiModelConfigRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.AiModelConfig, error) {
	var m model.AiModelConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AiModelConfigRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.AiModelConfig, error) {
	var ms []*model.AiModelConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(ms), nil
}

func (r *AiModelConfigRepositoryImpl) Upsert(ctx context.Context, config *entity.AiModelConfig) error {
	m := r.mapper.ToModel(config)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "feature"}, {Name: "tier"}},
		DoUpdates: clause.AssignmentColumns([]string{"model", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*config = *r.mapper.ToEntity(m)
	return nil
}
