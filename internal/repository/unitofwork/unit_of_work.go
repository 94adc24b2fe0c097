package unitofwork

import (
	"context"

	"ai-textassist-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	UserRepository() contract.UserRepository
	SubscriptionRepository() contract.SubscriptionRepository
	UsageRepository() contract.UsageRepository
	HistoryRepository() contract.HistoryRepository
	AiModelConfigRepository() contract.AiModelConfigRepository
}
