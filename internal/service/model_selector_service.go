package service

import (
	"context"
	"fmt"
	"time"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/repository/specification"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/tier"
	"ai-textassist-be/pkg/events"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ModelInvalidationChannel fans a cache flush out to every instance.
const ModelInvalidationChannel = "textassist:model-config:invalidate"

type ModelSelector interface {
	// ModelFor returns the provider model for feature on tier. It never fails; lookups
	// that error fall back to the configured defaults.
	ModelFor(ctx context.Context, feature entity.ActionType, t tier.Tier) string
	Invalidate(ctx context.Context)
	List(ctx context.Context) ([]*dto.ModelConfigResponse, error)
	Upsert(ctx context.Context, req *dto.UpsertModelConfigRequest) (*dto.ModelConfigResponse, error)
	// ListenForInvalidation flushes the local cache whenever another instance invalidates.
	// It blocks until ctx is done.
	ListenForInvalidation(ctx context.Context) error
}

type ModelDefaults struct {
	Free string
	Paid string
}

type modelSelector struct {
	uowFactory unitofwork.RepositoryFactory
	cache      *cache.Cache
	rdb        *redis.Client
	publisher  events.Publisher
	defaults   ModelDefaults
	logger     logger.ILogger
}

func NewModelSelector(
	uowFactory unitofwork.RepositoryFactory,
	rdb *redis.Client,
	publisher events.Publisher,
	defaults ModelDefaults,
	ttl time.Duration,
	log logger.ILogger,
) ModelSelector {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &modelSelector{
		uowFactory: uowFactory,
		cache:      cache.New(ttl, 10*time.Minute),
		rdb:        rdb,
		publisher:  publisher,
		defaults:   defaults,
		logger:     log,
	}
}

func cacheKey(feature entity.ActionType, t tier.Tier) string {
	return fmt.Sprintf("%s:%s", feature, t)
}

func (s *modelSelector) ModelFor(ctx context.Context, feature entity.ActionType, t tier.Tier) string {
	key := cacheKey(feature, t)
	if v, found := s.cache.Get(key); found {
		return v.(string)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	cfg, err := uow.AiModelConfigRepository().FindOne(ctx, specification.ByFeatureTier{Feature: feature, Tier: t})
	if err != nil {
		s.logger.Warn("MODEL_SELECTOR", "Model lookup failed, using default", map[string]interface{}{
			"feature": feature,
			"tier":    t,
			"error":   err.Error(),
		})
		return s.defaultFor(t)
	}

	model := s.defaultFor(t)
	if cfg != nil && cfg.Model != "" {
		model = cfg.Model
	}
	s.cache.SetDefault(key, model)
	return model
}

func (s *modelSelector) defaultFor(t tier.Tier) string {
	if tier.IsPaid(t) {
		return s.defaults.Paid
	}
	return s.defaults.Free
}

func (s *modelSelector) Invalidate(ctx context.Context) {
	s.cache.Flush()
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Publish(ctx, ModelInvalidationChannel, "flush").Err(); err != nil {
		s.logger.Warn("MODEL_SELECTOR", "Failed to publish invalidation", map[string]interface{}{"error": err.Error()})
	}
}

func (s *modelSelector) ListenForInvalidation(ctx context.Context) error {
	if s.rdb == nil {
		<-ctx.Done()
		return nil
	}
	sub := s.rdb.Subscribe(ctx, ModelInvalidationChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return fmt.Errorf("model invalidation subscription closed")
			}
			s.cache.Flush()
			s.logger.Info("MODEL_SELECTOR", "Model cache flushed by peer", nil)
		}
	}
}

func (s *modelSelector) List(ctx context.Context) ([]*dto.ModelConfigResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	configs, err := uow.AiModelConfigRepository().FindAll(ctx,
		specification.OrderBy{Field: "feature"},
		specification.OrderBy{Field: "tier"},
	)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ModelConfigResponse, 0, len(configs))
	for _, c := range configs {
		res = append(res, toModelConfigResponse(c))
	}
	return res, nil
}

func (s *modelSelector) Upsert(ctx context.Context, req *dto.UpsertModelConfigRequest) (*dto.ModelConfigResponse, error) {
	feature := entity.ActionType(req.Feature)
	t, ok := tier.Parse(req.Tier)
	if !feature.IsValid() || !ok {
		return nil, dto.NewValidationError("unknown feature or tier")
	}

	cfg := &entity.AiModelConfig{Feature: feature, Tier: t, Model: req.Model}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.AiModelConfigRepository().Upsert(ctx, cfg); err != nil {
		return nil, err
	}

	s.Invalidate(ctx)
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewModelConfigUpdated(string(feature), string(t), req.Model)); err != nil {
			s.logger.Warn("MODEL_SELECTOR", "Failed to publish model config event", map[string]interface{}{"error": err.Error()})
		}
	}
	return toModelConfigResponse(cfg), nil
}

func toModelConfigResponse(c *entity.AiModelConfig) *dto.ModelConfigResponse {
	return &dto.ModelConfigResponse{
		Feature:   string(c.Feature),
		Tier:      string(c.Tier),
		Model:     c.Model,
		UpdatedAt: c.UpdatedAt,
	}
}
