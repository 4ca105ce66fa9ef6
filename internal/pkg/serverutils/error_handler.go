package serverutils

import (
	"errors"

	"prompt-optimiser-be/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindRateLimited:
		return fiber.StatusTooManyRequests
	case apperr.KindUpstreamAuth, apperr.KindMisconfigured:
		return fiber.StatusInternalServerError
	case apperr.KindUpstreamFailure:
		return fiber.StatusBadGateway
	case apperr.KindExtraction:
		return fiber.StatusUnprocessableEntity
	case apperr.KindInvalidTransition, apperr.KindBusy:
		return fiber.StatusConflict
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is installed as fiber.Config.ErrorHandler. Only client-safe
// text from apperr.UserMessage leaves the process.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
	}

	kind := apperr.KindOf(err)
	code := StatusFor(kind)
	body := ErrorResponse(code, apperr.UserMessage(err))
	body.ErrorType = string(kind)
	if kind == "" {
		body.ErrorType = "internal"
	}
	return ctx.Status(code).JSON(body)
}

// ErrorHandlerMiddleware converts errors returned by downstream handlers into
// the error envelope before other middleware sees them.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
