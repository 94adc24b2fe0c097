package service

import (
	"context"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const defaultHistoryLimit = 20

type IHistoryService interface {
	List(ctx context.Context, userId uuid.UUID, req *dto.HistoryListRequest) (*dto.HistoryListResponse, error)
	SetFavorite(ctx context.Context, userId, id uuid.UUID, isFavorite bool) (*dto.HistoryItem, error)
	Delete(ctx context.Context, userId, id uuid.UUID) error
}

type historyService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewHistoryService(uowFactory unitofwork.RepositoryFactory) IHistoryService {
	return &historyService{uowFactory: uowFactory}
}

func (s *historyService) List(ctx context.Context, userId uuid.UUID, req *dto.HistoryListRequest) (*dto.HistoryListResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.HistoryRepository()

	filters := []specification.Specification{specification.UserOwnedBy{UserID: userId}}
	if req.Favorites {
		filters = append(filters, specification.FavoritesOnly{})
	}

	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	records, err := repo.FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: req.Offset},
	)...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, toHistoryItem(r))
	}
	return &dto.HistoryListResponse{Items: items, Total: total}, nil
}

func (s *historyService) SetFavorite(ctx context.Context, userId, id uuid.UUID, isFavorite bool) (*dto.HistoryItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		return nil, err
	}
	if err := uow.HistoryRepository().SetFavorite(ctx, record.Id, isFavorite); err != nil {
		return nil, err
	}
	record.IsFavorite = isFavorite
	item := toHistoryItem(record)
	return &item, nil
}

func (s *historyService) Delete(ctx context.Context, userId, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	record, err := s.findOwned(ctx, uow, userId, id)
	if err != nil {
		return err
	}
	return uow.HistoryRepository().Delete(ctx, record.Id)
}

// findOwned hides records of other users behind the same not-found error.
func (s *historyService) findOwned(ctx context.Context, uow unitofwork.UnitOfWork, userId, id uuid.UUID) (*entity.HistoryRecord, error) {
	record, err := uow.HistoryRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, dto.NewNotFoundError("History record not found")
	}
	return record, nil
}

func toHistoryItem(r *entity.HistoryRecord) dto.HistoryItem {
	return dto.HistoryItem{
		Id:             r.Id,
		ActionType:     string(r.ActionType),
		OriginalText:   r.OriginalText,
		ResultText:     r.ResultText,
		TargetLanguage: r.TargetLanguage,
		Metadata:       r.Metadata,
		IsFavorite:     r.IsFavorite,
		CreatedAt:      r.CreatedAt,
	}
}
