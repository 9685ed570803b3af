package meta

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/bininfo"
	"actiapp.dev/backend/internal/server/svr"
	"actiapp.dev/backend/internal/service"
)

var ErrUnhealthy = acterr.New(fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "one or more dependencies are not reachable")

type Meta struct {
	fx.In

	HealthService *service.Health
}

func RegisterMeta(meta *svr.Meta, c Meta) {
	meta.Get("/bininfo", c.BinInfo)

	meta.Get("/health", cache.New(cache.Config{
		// cache it for a second to mitigate potential DDoS
		Expiration: time.Second,
		Next: func(ctx *fiber.Ctx) bool {
			return ctx.Get(constant.SlimHeaderKey) != ""
		},
	}), c.Health)
}

func (c *Meta) BinInfo(ctx *fiber.Ctx) error {
	return ctx.JSON(bininfo.Get())
}

func (c *Meta) Health(ctx *fiber.Ctx) error {
	if err := c.HealthService.Ping(ctx.UserContext()); err != nil {
		log.Warn().Err(err).Str("evt.name", "health.failed").Msg("health check failed")
		return ErrUnhealthy
	}

	return ctx.JSON(fiber.Map{
		"status": "ok",
	})
}
