package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/pkg/flog"
)

// RequestID repopulates the id generated by the logger chain into ctx.Locals.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := flog.IDFromFiberCtx(c)
		if ok {
			c.Locals(constant.ContextKeyRequestID, id.String())
		}
		return c.Next()
	}
}
