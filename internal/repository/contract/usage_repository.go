package contract

import (
	"context"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"

	"github.com/google/uuid"
)

// UsageRepository is the append-only usage ledger.
type UsageRepository interface {
	Create(ctx context.Context, record *entity.UsageRecord) error
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// MarkConsumed finalises a reservation with the model and token metadata of the call.
	MarkConsumed(ctx context.Context, id uuid.UUID, model string, promptTokens, completionTokens int) error
	// Delete releases a reservation whose action never completed.
	Delete(ctx context.Context, id uuid.UUID) error
}
