package controller

import (
	"prompt-optimiser-be/pkg/identity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// requestHeaders adapts fiber's variadic Get to identity.HeaderFunc. Values are
// copied because the resolved identity outlives the request.
func requestHeaders(ctx *fiber.Ctx) identity.HeaderFunc {
	return func(key string) string {
		return utils.CopyString(ctx.Get(key))
	}
}

// sessionID copies the :id path parameter; fiber reuses the underlying buffer
// after the handler returns.
func sessionID(ctx *fiber.Ctx) string {
	return utils.CopyString(ctx.Params("id"))
}
