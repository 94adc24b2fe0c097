package serverutils

import (
	"context"
	"errors"

	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RemainingLookup resolves a user's remaining actions for error responses that
// do not already carry them.
type RemainingLookup func(ctx context.Context, userId uuid.UUID) (int, error)

// ErrorHandlerMiddleware renders every error returned by a handler into the response envelope.
// Authenticated requests always get remaining_actions; remaining may be nil in tests.
func ErrorHandlerMiddleware(log logger.ILogger, remaining RemainingLookup) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status, res := renderError(log, ctx, err)
		if res.RemainingActions == nil && status != fiber.StatusUnauthorized && remaining != nil {
			attachRemaining(log, ctx, res, remaining)
		}
		return ctx.Status(status).JSON(res)
	}
}

func renderError(log logger.ILogger, ctx *fiber.Ctx, err error) (int, *BaseResponse[any]) {
	if ae, ok := dto.AsActionError(err); ok {
		res := ErrorResponse(ae.Status, ae.Message).WithErrorCode(ae.Code)
		if ae.RemainingActions != nil {
			res.WithRemaining(*ae.RemainingActions)
		}
		if ae.Limit != nil {
			res.WithLimit(*ae.Limit)
		}
		if ae.Status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed upstream", map[string]interface{}{
				"path":  ctx.Path(),
				"code":  ae.Code,
				"error": err.Error(),
			})
		}
		return ae.Status, res
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return fiber.StatusUnprocessableEntity,
			ErrorResponse(fiber.StatusUnprocessableEntity, ve.Error()).WithErrorCode(dto.ErrCodeValidation)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		res := ErrorResponse(fe.Code, fe.Message)
		switch fe.Code {
		case fiber.StatusUnauthorized:
			res.WithErrorCode(dto.ErrCodeUnauthorized)
		case fiber.StatusNotFound:
			res.WithErrorCode(dto.ErrCodeNotFound)
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			res.WithErrorCode(dto.ErrCodeValidation)
		}
		return fe.Code, res
	}

	log.Error("HTTP", "Unhandled error", map[string]interface{}{
		"path":   ctx.Path(),
		"method": ctx.Method(),
		"error":  err.Error(),
	})
	return fiber.StatusInternalServerError,
		ErrorResponse(fiber.StatusInternalServerError, "Internal server error").WithErrorCode(dto.ErrCodeInternal)
}

func attachRemaining(log logger.ILogger, ctx *fiber.Ctx, res *BaseResponse[any], remaining RemainingLookup) {
	userId, err := GetUserId(ctx)
	if err != nil {
		return
	}
	n, err := remaining(ctx.UserContext(), userId)
	if err != nil {
		log.Warn("HTTP", "Could not resolve remaining actions for error response", map[string]interface{}{
			"path":  ctx.Path(),
			"error": err.Error(),
		})
		return
	}
	res.WithRemaining(n)
}
