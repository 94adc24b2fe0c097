package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/logger"
	"ai-textassist-be/internal/repository/unitofwork"
	"ai-textassist-be/internal/tier"
	"ai-textassist-be/pkg/events"
	"ai-textassist-be/pkg/llm"

	"github.com/google/uuid"
)

type ActionRequest struct {
	Type           entity.ActionType
	Text           string
	TargetLanguage string
}

// ActionGateway runs every protected text transformation:
// validate, check quota, check length, reserve, call the AI, log, respond.
type ActionGateway interface {
	Perform(ctx context.Context, userId uuid.UUID, req ActionRequest) (*dto.ActionResponse, error)
}

type actionGateway struct {
	uowFactory   unitofwork.RepositoryFactory
	entitlements EntitlementService
	models       ModelSelector
	provider     llm.Provider
	publisher    events.Publisher
	metrics      *Metrics
	logger       logger.ILogger
	aiTimeout    time.Duration
}

func NewActionGateway(
	uowFactory unitofwork.RepositoryFactory,
	entitlements EntitlementService,
	models ModelSelector,
	provider llm.Provider,
	publisher events.Publisher,
	metrics *Metrics,
	log logger.ILogger,
	aiTimeout time.Duration,
) ActionGateway {
	if aiTimeout <= 0 {
		aiTimeout = 30 * time.Second
	}
	return &actionGateway{
		uowFactory:   uowFactory,
		entitlements: entitlements,
		models:       models,
		provider:     provider,
		publisher:    publisher,
		metrics:      metrics,
		logger:       log,
		aiTimeout:    aiTimeout,
	}
}

// reservation is the outcome of the locked check-and-reserve step.
type reservation struct {
	record   *entity.UsageRecord
	snapshot *EntitlementSnapshot
}

// aiResult is the parsed provider output.
type aiResult struct {
	text     string
	metadata map[string]interface{}
	model    string
	prompt   int
	output   int
}

func (g *actionGateway) Perform(ctx context.Context, userId uuid.UUID, req ActionRequest) (*dto.ActionResponse, error) {
	action := string(req.Type)

	// 1. Validating
	if err := validateAction(&req); err != nil {
		g.metrics.ObserveAction(action, OutcomeValidation)
		return nil, err
	}

	// 2-3. QuotaChecking, LengthChecking, reserve
	res, err := g.reserve(ctx, userId, req)
	if err != nil {
		g.metrics.ObserveAction(action, outcomeFor(err))
		return nil, err
	}
	snap := res.snapshot

	// 4. Processing, outside the lock
	model := g.models.ModelFor(ctx, req.Type, snap.Tier)
	started := time.Now()
	result, err := g.process(ctx, req, model)
	g.metrics.ObserveAICall(action, time.Since(started))
	if err != nil {
		g.release(ctx, res.record)
		g.metrics.ObserveAction(action, OutcomeAIError)
		g.logger.Error("ACTION_GATEWAY", "AI call failed", map[string]interface{}{
			"user_id": userId.String(),
			"action":  action,
			"model":   model,
			"error":   err.Error(),
		})
		return nil, dto.NewAIError(err, snap.Remaining)
	}

	// 5. Logging
	historyId := g.logAction(ctx, userId, req, res.record, result)

	// 6. Responding
	remaining := snap.Limit - (snap.Used + 1)
	if remaining < 0 {
		remaining = 0
	}
	g.metrics.ObserveAction(action, OutcomeSuccess)
	g.publish(events.NewActionPerformed(userId.String(), action, string(snap.Tier), result.model, remaining))

	return &dto.ActionResponse{
		ActionType:       action,
		Result:           result.text,
		Metadata:         result.metadata,
		HistoryId:        historyId,
		Model:            result.model,
		RemainingActions: remaining,
	}, nil
}

func validateAction(req *ActionRequest) error {
	if !req.Type.IsValid() {
		return dto.NewValidationError("unknown action type")
	}
	if strings.TrimSpace(req.Text) == "" {
		return dto.NewValidationError("text is required")
	}
	if req.Type == entity.ActionTypeTranslation {
		if strings.TrimSpace(req.TargetLanguage) == "" {
			return dto.NewValidationError("target_language is required")
		}
		if !tier.IsSupportedLanguage(req.TargetLanguage) {
			return dto.NewValidationError(fmt.Sprintf("unsupported target_language %q", req.TargetLanguage))
		}
		req.TargetLanguage = tier.NormalizeLanguage(req.TargetLanguage)
	}
	return nil
}

// reserve serializes the quota check per user behind a row lock on the user and
// inserts a reserved usage row before releasing it.
func (g *actionGateway) reserve(ctx context.Context, userId uuid.UUID, req ActionRequest) (*reservation, error) {
	uow := g.uowFactory.NewUnitOfWork(ctx)
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

	snap, err := g.entitlements.Snapshot(ctx, uow, userId)
	if err != nil {
		return nil, fmt.Errorf("entitlement snapshot: %w", err)
	}

	if !snap.CanPerformAction() {
		return nil, dto.NewDailyLimitReachedError(snap.Limit, snap.IsLifetime)
	}
	if utf8.RuneCountInString(req.Text) > snap.MaxTextLength {
		return nil, dto.NewTextTooLongError(snap.MaxTextLength, snap.Remaining)
	}
	if req.Type == entity.ActionTypeTranslation && !tier.IsLanguageAvailable(snap.Tier, req.TargetLanguage) {
		return nil, dto.NewLanguageNotAvailableError(req.TargetLanguage, snap.Remaining)
	}

	record := &entity.UsageRecord{
		Id:         uuid.New(),
		UserId:     userId,
		ActionType: req.Type,
		UsageDate:  g.entitlements.Today(),
		Status:     entity.UsageStatusReserved,
	}
	if err := uow.UsageRepository().Create(ctx, record); err != nil {
		return nil, fmt.Errorf("reserve usage: %w", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit reservation: %w", err)
	}

	return &reservation{record: record, snapshot: snap}, nil
}

func (g *actionGateway) process(ctx context.Context, req ActionRequest, model string) (*aiResult, error) {
	aiCtx, cancel := context.WithTimeout(ctx, g.aiTimeout)
	defer cancel()

	resp, err := g.provider.Complete(aiCtx, buildActionRequest(req, model))
	if err != nil {
		return nil, err
	}

	result := &aiResult{
		model:  resp.Model,
		prompt: resp.PromptTokens,
		output: resp.CompletionTokens,
	}
	if result.model == "" {
		result.model = model
	}

	switch req.Type {
	case entity.ActionTypeTranslation:
		var out dto.TranslationResult
		if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
			return nil, fmt.Errorf("decode translation: %w", err)
		}
		if strings.TrimSpace(out.TranslatedText) == "" {
			return nil, llm.ErrEmptyResponse
		}
		result.text = out.TranslatedText
		result.metadata = map[string]interface{}{
			"target_language":          req.TargetLanguage,
			"detected_source_language": out.DetectedSourceLanguage,
		}
	default:
		var out dto.CorrectionResult
		if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
			return nil, fmt.Errorf("decode correction: %w", err)
		}
		if strings.TrimSpace(out.CorrectedText) == "" {
			return nil, llm.ErrEmptyResponse
		}
		if out.Changes == nil {
			out.Changes = []dto.CorrectionChange{}
		}
		result.text = out.CorrectedText
		result.metadata = map[string]interface{}{"changes": out.Changes}
	}
	return result, nil
}

// release deletes the reservation of an action that never completed.
func (g *actionGateway) release(ctx context.Context, record *entity.UsageRecord) {
	ctx = context.WithoutCancel(ctx)
	uow := g.uowFactory.NewUnitOfWork(ctx)
	if err := uow.UsageRepository().Delete(ctx, record.Id); err != nil {
		g.logger.Error("ACTION_GATEWAY", "Failed to release usage reservation", map[string]interface{}{
			"usage_id": record.Id.String(),
			"error":    err.Error(),
		})
	}
}

// logAction finalises the reservation and stores history in one transaction.
// A failure here leaves the reservation counted and is only logged.
func (g *actionGateway) logAction(ctx context.Context, userId uuid.UUID, req ActionRequest, record *entity.UsageRecord, result *aiResult) *uuid.UUID {
	ctx = context.WithoutCancel(ctx)
	uow := g.uowFactory.NewUnitOfWork(ctx)
	historyId := uuid.New()

	err := func() error {
		if err := uow.Begin(ctx); err != nil {
			return err
		}
		defer uow.Rollback()

		if err := uow.UsageRepository().MarkConsumed(ctx, record.Id, result.model, result.prompt, result.output); err != nil {
			return fmt.Errorf("mark consumed: %w", err)
		}

		var targetLanguage *string
		if req.Type == entity.ActionTypeTranslation {
			lang := req.TargetLanguage
			targetLanguage = &lang
		}
		history := &entity.HistoryRecord{
			Id:             historyId,
			UserId:         userId,
			ActionType:     req.Type,
			OriginalText:   req.Text,
			ResultText:     result.text,
			TargetLanguage: targetLanguage,
			Metadata:       result.metadata,
		}
		if err := uow.HistoryRepository().Create(ctx, history); err != nil {
			return fmt.Errorf("create history: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return err
		}
		record.Status = entity.UsageStatusConsumed
		return nil
	}()
	if err != nil {
		g.logger.Error("ACTION_GATEWAY", "Failed to log completed action", map[string]interface{}{
			"user_id":  userId.String(),
			"usage_id": record.Id.String(),
			"error":    err.Error(),
		})
		return nil
	}
	return &historyId
}

func (g *actionGateway) publish(event events.Event) {
	if g.publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.publisher.Publish(ctx, event); err != nil {
			g.logger.Warn("ACTION_GATEWAY", "Failed to publish event", map[string]interface{}{
				"type":  event.EventType(),
				"error": err.Error(),
			})
		}
	}()
}

func outcomeFor(err error) string {
	ae, ok := dto.AsActionError(err)
	if !ok {
		return OutcomeInternal
	}
	switch ae.Code {
	case dto.ErrCodeDailyLimitReached:
		return OutcomeQuotaExceeded
	case dto.ErrCodeTextTooLong:
		return OutcomeTextTooLong
	case dto.ErrCodeLanguageNotAvailable:
		return OutcomeLanguageNotAvailable
	case dto.ErrCodeValidation:
		return OutcomeValidation
	default:
		return OutcomeInternal
	}
}
