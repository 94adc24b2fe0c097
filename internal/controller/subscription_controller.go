package controller

import (
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISubscriptionController interface {
	RegisterRoutes(r fiber.Router)
	Verify(ctx *fiber.Ctx) error
	Status(ctx *fiber.Ctx) error
}

type subscriptionController struct {
	service service.SubscriptionService
	auth    fiber.Handler
}

func NewSubscriptionController(service service.SubscriptionService, auth fiber.Handler) ISubscriptionController {
	return &subscriptionController{service: service, auth: auth}
}

func (c *subscriptionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/subscription", c.auth)
	h.Post("/verify", c.Verify)
	h.Get("/status", c.Status)
}

func (c *subscriptionController) Verify(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	var req dto.VerifyPurchaseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return dto.NewValidationError("Invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.VerifyPurchase(ctx.UserContext(), userId, &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Purchase verified", res).WithRemaining(res.RemainingActions))
}

func (c *subscriptionController) Status(ctx *fiber.Ctx) error {
	userId, err := serverutils.GetUserId(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.GetStatus(ctx.UserContext(), userId)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Subscription status", res).WithRemaining(res.RemainingActions))
}
