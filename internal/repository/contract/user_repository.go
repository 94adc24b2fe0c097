package contract

import (
	"context"

	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// LockForUpdate takes a row lock on the user until the surrounding transaction ends.
	// Every quota check-and-reserve for the user is serialized behind this lock.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error)
}
