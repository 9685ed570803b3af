package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"actiapp.dev/backend/internal/util/rekuest"
)

// ValidateIDParam rejects requests whose path parameter is not a plausible identifier.
func ValidateIDParam(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := rekuest.ValidID(c, param); err != nil {
			return err
		}
		return c.Next()
	}
}
