package controller

import (
	"prompt-optimiser-be/internal/dto"
	"prompt-optimiser-be/internal/pkg/serverutils"
	"prompt-optimiser-be/internal/service"
	"prompt-optimiser-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
	UpdateEntry(ctx *fiber.Ctx) error
	Critique(ctx *fiber.Ctx) error
	Answer(ctx *fiber.Ctx) error
	Generate(ctx *fiber.Ctx) error
	SwitchModel(ctx *fiber.Ctx) error
	EditInput(ctx *fiber.Ctx) error
	ImplementSuggestions(ctx *fiber.Ctx) error
	Retry(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
}

func NewSessionController(service service.ISessionService) ISessionController {
	return &sessionController{service: service}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Post("", c.Create)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
	h.Put(":id/entry", c.UpdateEntry)
	h.Post(":id/critique", c.Critique)
	h.Put(":id/answers/:questionId", c.Answer)
	h.Post(":id/generate", c.Generate)
	h.Put(":id/model", c.SwitchModel)
	h.Put(":id/input", c.EditInput)
	h.Post(":id/suggestions/implement", c.ImplementSuggestions)
	h.Post(":id/retry", c.Retry)
	h.Post(":id/reset", c.Reset)
}

func parseBody(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	return serverutils.ValidateRequest(out)
}

func (c *sessionController) Create(ctx *fiber.Ctx) error {
	res, err := c.service.Create(ctx.UserContext(), identity.Resolve(requestHeaders(ctx)))
	if err != nil {
		return err
	}
	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) Delete(ctx *fiber.Ctx) error {
	if err := c.service.Delete(ctx.UserContext(), sessionID(ctx)); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete session", nil))
}

func (c *sessionController) UpdateEntry(ctx *fiber.Ctx) error {
	var req dto.UpdateEntryRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.UpdateEntry(ctx.UserContext(), sessionID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success update entry", res))
}

func (c *sessionController) Critique(ctx *fiber.Ctx) error {
	var req dto.SubmitCritiqueRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SubmitCritique(ctx.UserContext(), sessionID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success submit critique", res))
}

func (c *sessionController) Answer(ctx *fiber.Ctx) error {
	var req dto.AnswerQuestionRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.AnswerQuestion(ctx.UserContext(), sessionID(ctx), utils.CopyString(ctx.Params("questionId")), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success answer question", res))
}

func (c *sessionController) Generate(ctx *fiber.Ctx) error {
	res, err := c.service.Generate(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success generate", res))
}

func (c *sessionController) SwitchModel(ctx *fiber.Ctx) error {
	var req dto.SwitchModelRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.SwitchModel(ctx.UserContext(), sessionID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success switch model", res))
}

func (c *sessionController) EditInput(ctx *fiber.Ctx) error {
	var req dto.EditInputRequest
	if err := parseBody(ctx, &req); err != nil {
		return err
	}

	res, err := c.service.EditInput(ctx.UserContext(), sessionID(ctx), &req)
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success edit input", res))
}

func (c *sessionController) ImplementSuggestions(ctx *fiber.Ctx) error {
	res, err := c.service.ImplementSuggestions(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success implement suggestions", res))
}

func (c *sessionController) Retry(ctx *fiber.Ctx) error {
	res, err := c.service.Retry(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success retry", res))
}

func (c *sessionController) Reset(ctx *fiber.Ctx) error {
	res, err := c.service.Reset(ctx.UserContext(), sessionID(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}
