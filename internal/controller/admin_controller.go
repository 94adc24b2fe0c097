package controller

import (
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdminController interface {
	RegisterRoutes(r fiber.Router)
	ListModelConfigs(ctx *fiber.Ctx) error
	UpsertModelConfig(ctx *fiber.Ctx) error
}

type adminController struct {
	models       service.ModelSelector
	entitlements service.EntitlementService
	auth         fiber.Handler
}

func NewAdminController(models service.ModelSelector, entitlements service.EntitlementService, auth fiber.Handler) IAdminController {
	return &adminController{models: models, entitlements: entitlements, auth: auth}
}

func (c *adminController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/admin", c.auth, serverutils.AdminOnly)
	h.Get("/model-configs", c.ListModelConfigs)
	h.Put("/model-configs", c.UpsertModelConfig)
}

func (c *adminController) ListModelConfigs(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.models.List(ctx.UserContext())
	if err != nil {
		return err
	}
	return respondWithRemaining(ctx, c.entitlements, userId, serverutils.SuccessResponse("Model configs", res))
}

func (c *adminController) UpsertModelConfig(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.UpsertModelConfigRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.models.Upsert(ctx.UserContext(), &req)
	if err != nil {
		return err
	}
	return respondWithRemaining(ctx, c.entitlements, userId, serverutils.SuccessResponse("Model config saved", res))
}
