package mapper

import (
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/model"
	"ai-textassist-be/internal/tier"

	"gorm.io/datatypes"
)

type SubscriptionMapper struct{}

func NewSubscriptionMapper() *SubscriptionMapper {
	return &SubscriptionMapper{}
}

func (m *SubscriptionMapper) ToEntity(s *model.UserSubscription) *entity.Subscription {
	if s == nil {
		return nil
	}
	return &entity.Subscription{
		Id:                    s.Id,
		UserId:                s.UserId,
		Plan:                  tier.Plan(s.Plan),
		Status:                entity.SubscriptionStatus(s.Status),
		StartsAt:              s.StartsAt,
		ExpiresAt:             s.ExpiresAt,
		CancelledAt:           s.CancelledAt,
		TransactionId:         s.TransactionId,
		OriginalTransactionId: s.OriginalTransactionId,
		ProductId:             s.ProductId,
		Receipt:               []byte(s.Receipt),
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToModel(s *entity.Subscription) *model.UserSubscription {
	if s == nil {
		return nil
	}
	var receipt datatypes.JSON
	if len(s.Receipt) > 0 {
		receipt = datatypes.JSON(s.Receipt)
	}
	return &model.UserSubscription{
		Id:                    s.Id,
		UserId:                s.UserId,
		Plan:                  string(s.Plan),
		Status:                string(s.Status),
		StartsAt:              s.StartsAt,
		ExpiresAt:             s.ExpiresAt,
		CancelledAt:           s.CancelledAt,
		TransactionId:         s.TransactionId,
		OriginalTransactionId: s.OriginalTransactionId,
		ProductId:             s.ProductId,
		Receipt:               receipt,
		CreatedAt:             s.CreatedAt,
		UpdatedAt:             s.UpdatedAt,
	}
}

func (m *SubscriptionMapper) ToEntities(items []*model.UserSubscription) []*entity.Subscription {
	out := make([]*entity.Subscription, 0, len(items))
	for _, item := range items {
		out = append(out, m.ToEntity(item))
	}
	return out
}
