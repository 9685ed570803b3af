package middlewares

import (
	"github.com/getsentry/sentry-go"
	"github.com/gofiber/contrib/fibersentry"
	"github.com/gofiber/fiber/v2"

	"actiapp.dev/backend/internal/constant"
)

// EnrichSentry tags the request hub with the request id and, once authenticated,
// the actor. Probes sending the slim header are left untouched.
func EnrichSentry() func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		if c.Get(constant.SlimHeaderKey) != "" {
			return c.Next()
		}

		hub := fibersentry.GetHubFromContext(c)
		if hub == nil {
			return c.Next()
		}

		if id, ok := c.Locals(constant.ContextKeyRequestID).(string); ok {
			hub.Scope().SetTag("request_id", id)
		}

		err := c.Next()

		if actor := Actor(c); actor != nil {
			hub.Scope().SetUser(sentry.User{ID: actor.UserID})
			hub.Scope().SetTag("role", actor.Role)
		}

		return err
	}
}
