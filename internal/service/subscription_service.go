package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/tier"
	"ai-textassist-be/pkg/appstore"
	"ai-textassist-be/pkg/events"

	"github.com/google/uuid"
)

type SubscriptionService interface {
	VerifyPurchase(ctx context.Context, userId uuid.UUID, req *dto.VerifyPurchaseRequest) (*dto.VerifyPurchaseResponse, error)
	GetStatus(ctx context.Context, userId uuid.UUID) (*dto.EntitlementStatus, error)
}

type subscriptionService struct {
	uowFactory   unitofwork.RepositoryFactory
	verifier     appstore.Verifier
	entitlements EntitlementService
	publisher    events.Publisher
	metrics      *Metrics
	logger       logger.ILogger
	now          func() time.Time
}

func NewSubscriptionService(
	uowFactory unitofwork.RepositoryFactory,
	verifier appstore.Verifier,
	entitlements EntitlementService,
	publisher events.Publisher,
	metrics *Metrics,
	log logger.ILogger,
) SubscriptionService {
	return &subscriptionService{
		uowFactory:   uowFactory,
		verifier:     verifier,
		entitlements: entitlements,
		publisher:    publisher,
		metrics:      metrics,
		logger:       log,
		now:          time.Now,
	}
}

// storedReceipt is what lands in user_subscriptions.receipt.
type storedReceipt struct {
	SignedTransaction string `json:"signed_transaction,omitempty"`
	Environment       string `json:"environment,omitempty"`
}

func (s *subscriptionService) VerifyPurchase(ctx context.Context, userId uuid.UUID, req *dto.VerifyPurchaseRequest) (*dto.VerifyPurchaseResponse, error) {
	plan, ok := tier.PlanForProduct(req.ProductId)
	if !ok {
		s.metrics.ObserveVerification("rejected")
		return nil, dto.NewValidationError(fmt.Sprintf("unknown product %q", req.ProductId))
	}

	txn, err := s.verifier.Verify(ctx, appstore.Claim{
		TransactionID:         req.TransactionId,
		OriginalTransactionID: req.OriginalTransactionId,
		ProductID:             req.ProductId,
	})
	if err != nil {
		switch {
		case errors.Is(err, appstore.ErrTransactionNotFound), errors.Is(err, appstore.ErrInvalidSignature):
			s.metrics.ObserveVerification("rejected")
			return nil, dto.NewValidationError("The purchase could not be verified")
		default:
			s.metrics.ObserveVerification("store_error")
			s.logger.Error("SUBSCRIPTION", "Store verification failed", map[string]interface{}{
				"user_id":        userId.String(),
				"transaction_id": req.TransactionId,
				"error":          err.Error(),
			})
			return nil, dto.NewStoreUnavailableError(err)
		}
	}

	if txn.ProductID != req.ProductId || txn.OriginalTransactionID != req.OriginalTransactionId {
		s.metrics.ObserveVerification("rejected")
		return nil, dto.NewValidationError("The verified purchase does not match the submitted transaction")
	}

	sub, err := s.persist(ctx, userId, plan, txn)
	if err != nil {
		if ae, ok := dto.AsActionError(err); ok && ae.Code == dto.ErrCodeTransactionClaimed {
			s.metrics.ObserveVerification("claimed")
		}
		return nil, err
	}
	s.metrics.ObserveVerification(string(sub.Status))

	snap, err := s.entitlements.Snapshot(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return nil, err
	}

	s.logger.Info("SUBSCRIPTION", "Purchase verified", map[string]interface{}{
		"user_id":        userId.String(),
		"transaction_id": sub.TransactionId,
		"status":         string(sub.Status),
		"tier":           string(snap.Tier),
	})
	s.publish(events.NewSubscriptionVerified(userId.String(), sub.TransactionId, sub.ProductId, string(sub.Status), string(snap.Tier)))

	return &dto.VerifyPurchaseResponse{
		Tier:             string(snap.Tier),
		Plan:             string(sub.Plan),
		Status:           string(sub.Status),
		ExpiresAt:        sub.ExpiresAt,
		CancelledAt:      sub.CancelledAt,
		RemainingActions: snap.Remaining,
	}, nil
}

// persist claims the transaction for userId. A transaction id belongs to exactly one user;
// re-verifying one's own transaction updates that row in place.
func (s *subscriptionService) persist(ctx context.Context, userId uuid.UUID, plan tier.Plan, txn *appstore.Transaction) (*entity.Subscription, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().LockForUpdate(ctx, userId)
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	if user == nil {
		return nil, dto.NewUnauthorizedError("User no longer exists")
	}

	repo := uow.SubscriptionRepository()
	existing, err := repo.FindOne(ctx, specification.ByTransactionID{TransactionID: txn.TransactionID})
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.UserId != userId {
		return nil, dto.NewTransactionClaimedError()
	}

	receipt, err := json.Marshal(storedReceipt{SignedTransaction: txn.SignedPayload, Environment: txn.Environment})
	if err != nil {
		return nil, err
	}

	next := &entity.Subscription{
		Id:                    uuid.New(),
		UserId:                userId,
		Plan:                  plan,
		StartsAt:              txn.PurchaseDate,
		ExpiresAt:             txn.ExpiresDate,
		TransactionId:         txn.TransactionID,
		OriginalTransactionId: txn.OriginalTransactionID,
		ProductId:             txn.ProductID,
		Receipt:               receipt,
	}
	s.applyStatus(next, txn)

	if existing == nil {
		if err := repo.Create(ctx, next); err != nil {
			return nil, err
		}
	} else {
		if sameState(existing, next) {
			return existing, nil
		}
		next.Id = existing.Id
		next.CreatedAt = existing.CreatedAt
		if err := repo.Update(ctx, next); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *subscriptionService) applyStatus(sub *entity.Subscription, txn *appstore.Transaction) {
	now := s.now()
	switch {
	case txn.IsRevoked():
		revokedAt := *txn.RevocationDate
		sub.Status = entity.SubscriptionStatusCancelled
		sub.CancelledAt = &revokedAt
		sub.ExpiresAt = &revokedAt
	case txn.ExpiresDate != nil && !txn.ExpiresDate.After(now):
		sub.Status = entity.SubscriptionStatusExpired
	default:
		sub.Status = entity.SubscriptionStatusActive
	}
}

// sameState reports whether a re-verify changes nothing, in which case the row is not rewritten.
func sameState(a, b *entity.Subscription) bool {
	return a.Plan == b.Plan &&
		a.Status == b.Status &&
		a.ProductId == b.ProductId &&
		a.OriginalTransactionId == b.OriginalTransactionId &&
		timesEqual(a.ExpiresAt, b.ExpiresAt) &&
		timesEqual(a.CancelledAt, b.CancelledAt)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func (s *subscriptionService) GetStatus(ctx context.Context, userId uuid.UUID) (*dto.EntitlementStatus, error) {
	return s.entitlements.GetStatus(ctx, userId)
}

func (s *subscriptionService) publish(event events.Event) {
	if s.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("SUBSCRIPTION", "Failed to publish event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}
