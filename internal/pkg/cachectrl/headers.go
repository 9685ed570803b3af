package cachectrl

import (
	"github.com/gofiber/fiber/v2"
)

// OptOut marks the response as private and never cacheable.
func OptOut(ctx *fiber.Ctx) {
	ctx.Set(fiber.HeaderCacheControl, "private, no-cache, no-store, must-revalidate")
	ctx.Set(fiber.HeaderPragma, "no-cache")
	ctx.Set(fiber.HeaderExpires, "0")
}

// NoStore is a middleware applying OptOut to every response of a route group.
func NoStore() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		OptOut(ctx)
		return ctx.Next()
	}
}
