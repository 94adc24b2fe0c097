package contract

import (
	"context"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"

	"github.com/google/uuid"
)

type HistoryRepository interface {
	Create(ctx context.Context, record *entity.HistoryRecord) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.HistoryRecord, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.HistoryRecord, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	SetFavorite(ctx context.Context, id uuid.UUID, isFavorite bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}
