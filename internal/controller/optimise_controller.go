package controller

import (
	"prompt-optimiser-be/internal/dto"
	"prompt-optimiser-be/internal/pkg/serverutils"
	"prompt-optimiser-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IOptimiseController interface {
	RegisterRoutes(r fiber.Router)
	Optimise(ctx *fiber.Ctx) error
	Vendors(ctx *fiber.Ctx) error
}

type optimiseController struct {
	service service.IOptimiseService
}

func NewOptimiseController(service service.IOptimiseService) IOptimiseController {
	return &optimiseController{service: service}
}

func (c *optimiseController) RegisterRoutes(r fiber.Router) {
	r.Post("/optimise", c.Optimise)
	r.Get("/vendors", c.Vendors)
}

// Optimise returns the extracted model object as-is on success.
func (c *optimiseController) Optimise(ctx *fiber.Ctx) error {
	var req dto.OptimiseRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	res, err := c.service.Optimise(ctx.UserContext(), requestHeaders(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *optimiseController) Vendors(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success get vendors", c.service.Vendors()))
}
