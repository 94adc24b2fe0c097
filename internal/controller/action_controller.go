package controller

import (
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/entity"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IActionController interface {
	RegisterRoutes(r fiber.Router)
	Correct(ctx *fiber.Ctx) error
	Translate(ctx *fiber.Ctx) error
}

type actionController struct {
	gateway service.ActionGateway
	auth    fiber.Handler
}

func NewActionController(gateway service.ActionGateway, auth fiber.Handler) IActionController {
	return &actionController{gateway: gateway, auth: auth}
}

func (c *actionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/actions", c.auth)
	h.Post("/correct", c.Correct)
	h.Post("/translate", c.Translate)
}

func (c *actionController) Correct(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.CorrectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewValidationError("Invalid request body")
	}

	res, err := c.gateway.Perform(ctx.UserContext(), userId, service.ActionRequest{
		Type: entity.ActionTypeCorrection,
		Text: req.Text,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Text corrected", res).WithRemaining(res.RemainingActions))
}

func (c *actionController) Translate(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.TranslateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewValidationError("Invalid request body")
	}

	res, err := c.gateway.Perform(ctx.UserContext(), userId, service.ActionRequest{
		Type:           entity.ActionTypeTranslation,
		Text:           req.Text,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Text translated", res).WithRemaining(res.RemainingActions))
}
