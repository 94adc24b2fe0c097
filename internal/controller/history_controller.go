package controller

import (
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IHistoryController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
	SetFavorite(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type historyController struct {
	service      service.IHistoryService
	entitlements service.EntitlementService
	auth         fiber.Handler
}

func NewHistoryController(service service.IHistoryService, entitlements service.EntitlementService, auth fiber.Handler) IHistoryController {
	return &historyController{service: service, entitlements: entitlements, auth: auth}
}

func (c *historyController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/history", c.auth)
	h.Get("", c.List)
	h.Patch("/:id/favorite", c.SetFavorite)
	h.Delete("/:id", c.Delete)
}

func (c *historyController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.HistoryListRequest
	if err := ctx.QueryParser(&req); err != nil {
		return dto.NewValidationError("Invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.List(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return respondWithRemaining(ctx, c.entitlements, userId, serverutils.SuccessResponse("Success get history", res))
}

func (c *historyController) SetFavorite(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return dto.NewValidationError("invalid history id")
	}

	var req dto.SetFavoriteRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SetFavorite(ctx.UserContext(), userId, id, *req.IsFavorite)
	if err != nil {
		return err
	}
	return respondWithRemaining(ctx, c.entitlements, userId, serverutils.SuccessResponse("Favorite updated", res))
}

func (c *historyController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return dto.NewValidationError("invalid history id")
	}

	if err := c.service.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}
	return respondWithRemaining(ctx, c.entitlements, userId, serverutils.SuccessResponse[any]("History deleted", nil))
}

// respondWithRemaining attaches the caller's current remaining_actions to res.
func respondWithRemaining[T any](ctx *fiber.Ctx, entitlements service.EntitlementService, userId uuid.UUID, res *serverutils.BaseResponse[T]) error {
	remaining, err := entitlements.RemainingActions(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(res.WithRemaining(remaining))
}
