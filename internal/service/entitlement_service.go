package service

import (
	"context"
	"time"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
)

// EntitlementSnapshot is the user's entitlement computed from one read of persisted state.
type EntitlementSnapshot struct {
	Tier          tier.Tier
	Subscription  *entity.Subscription // most recent record, nil if none
	Used          int                  // usage in the current period
	UsedToday     int
	UsedLifetime  int
	Limit         int
	Remaining     int
	IsLifetime    bool
	MaxTextLength int
}

func (s *EntitlementSnapshot) CanPerformAction() bool {
	return s.Remaining > 0
}

type EntitlementService interface {
	// ResolveTier reads the most recent subscription record and maps it to the effective tier.
	ResolveTier(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (tier.Tier, *entity.Subscription, error)
	// Snapshot must be called with the same uow that will record usage, so check and record
	// see the same state.
	Snapshot(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*EntitlementSnapshot, error)
	RemainingActions(ctx context.Context, userId uuid.UUID) (int, error)
	CanPerformAction(ctx context.Context, userId uuid.UUID) (bool, error)
	GetStatus(ctx context.Context, userId uuid.UUID) (*dto.EntitlementStatus, error)
	// Today is the server's calendar day in the quota timezone, as midnight UTC.
	Today() time.Time
}

type entitlementService struct {
	uowFactory unitofwork.RepositoryFactory
	location   *time.Location
	now        func() time.Time
}

func NewEntitlementService(uowFactory unitofwork.RepositoryFactory, location *time.Location) EntitlementService {
	if location == nil {
		location = time.UTC
	}
	return &entitlementService{
		uowFactory: uowFactory,
		location:   location,
		now:        time.Now,
	}
}

func (s *entitlementService) Today() time.Time {
	local := s.now().In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *entitlementService) ResolveTier(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (tier.Tier, *entity.Subscription, error) {
	sub, err := uow.SubscriptionRepository().FindOne(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.MostRecentFirst{},
	)
	if err != nil {
		return tier.Free, nil, err
	}
	return sub.EffectiveTier(s.now()), sub, nil
}

func (s *entitlementService) Snapshot(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID) (*EntitlementSnapshot, error) {
	t, sub, err := s.ResolveTier(ctx, uow, userId)
	if err != nil {
		return nil, err
	}

	usageRepo := uow.UsageRepository()
	lifetime, err := usageRepo.Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, err
	}
	today, err := usageRepo.Count(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByUsageDate{Date: s.Today()},
	)
	if err != nil {
		return nil, err
	}

	def := tier.Lookup(t)
	used := int(today)
	if def.IsLifetimeLimit {
		used = int(lifetime)
	}
	remaining := def.UsageLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &EntitlementSnapshot{
		Tier:          t,
		Subscription:  sub,
		Used:          used,
		UsedToday:     int(today),
		UsedLifetime:  int(lifetime),
		Limit:         def.UsageLimit,
		Remaining:     remaining,
		IsLifetime:    def.IsLifetimeLimit,
		MaxTextLength: def.MaxTextLength,
	}, nil
}

func (s *entitlementService) RemainingActions(ctx context.Context, userId uuid.UUID) (int, error) {
	snap, err := s.Snapshot(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return 0, err
	}
	return snap.Remaining, nil
}

func (s *entitlementService) CanPerformAction(ctx context.Context, userId uuid.UUID) (bool, error) {
	remaining, err := s.RemainingActions(ctx, userId)
	if err != nil {
		return false, err
	}
	return remaining > 0, nil
}

func (s *entitlementService) GetStatus(ctx context.Context, userId uuid.UUID) (*dto.EntitlementStatus, error) {
	snap, err := s.Snapshot(ctx, s.uowFactory.NewUnitOfWork(ctx), userId)
	if err != nil {
		return nil, err
	}
	return entitlementStatus(snap, s.now()), nil
}

func entitlementStatus(snap *EntitlementSnapshot, now time.Time) *dto.EntitlementStatus {
	status := &dto.EntitlementStatus{
		Tier:             string(snap.Tier),
		Plan:             string(tier.PlanForTier(snap.Tier)),
		RemainingActions: snap.Remaining,
		UsageToday:       snap.UsedToday,
		UsageLifetime:    snap.UsedLifetime,
		DailyLimit:       snap.Limit,
		IsLifetimeLimit:  snap.IsLifetime,
		MaxTextLength:    snap.MaxTextLength,
	}
	if sub := snap.Subscription; sub != nil {
		status.Status = string(sub.Status)
		status.ExpiresAt = sub.ExpiresAt
		status.CancelledAt = sub.CancelledAt
		status.IsCancelledButActive = sub.IsCancelledButActive(now)
		if tier.IsPaid(snap.Tier) {
			status.Plan = string(sub.Plan)
		}
	}
	return status
}
