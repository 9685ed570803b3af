package svr

import (
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/app/appconfig"
	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/fiberstore"
	"actiapp.dev/backend/internal/pkg/middlewares"
	"actiapp.dev/backend/internal/pkg/token"
	"actiapp.dev/backend/internal/service"
)

// Middlewares are the route-level handlers controllers attach to individual endpoints.
type Middlewares struct {
	// RequireAuth rejects requests without a valid bearer token.
	RequireAuth fiber.Handler
	// OptionalAuth resolves the actor when a token is sent.
	OptionalAuth fiber.Handler
	Idempotency  fiber.Handler
	LoginLimiter fiber.Handler
}

type middlewareDeps struct {
	fx.In

	Config  *appconfig.Config
	Redis   *redis.Client
	RedSync *redsync.Redsync
	Users   *service.User
	Issuer  *token.Issuer
}

var ErrTooManyLogins = acterr.New(fiber.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many login attempts, please retry later")

func CreateMiddlewares(deps middlewareDeps) *Middlewares {
	return &Middlewares{
		RequireAuth:  middlewares.Authenticate(deps.Issuer, deps.Users, true),
		OptionalAuth: middlewares.Authenticate(deps.Issuer, deps.Users, false),
		Idempotency: middlewares.Idempotency(&middlewares.IdempotencyConfig{
			Lifetime:  deps.Config.IdempotencyLifetime,
			KeyHeader: constant.IdempotencyKeyHeader,
			Storage:   fiberstore.NewRedis(deps.Redis, "idempotency"),
			RedSync:   deps.RedSync,
		}),
		LoginLimiter: limiter.New(limiter.Config{
			Max:        deps.Config.LoginRateLimit,
			Expiration: time.Minute,
			Storage:    fiberstore.NewRedis(deps.Redis, "limiter:login"),
			LimitReached: func(c *fiber.Ctx) error {
				return ErrTooManyLogins
			},
		}),
	}
}

// Passthrough builds a Middlewares set that authenticates with the given handler and
// applies nothing else. It is meant for tests exercising controllers in isolation.
func Passthrough(requireAuth, optionalAuth fiber.Handler) *Middlewares {
	next := func(c *fiber.Ctx) error { return c.Next() }
	return &Middlewares{
		RequireAuth:  requireAuth,
		OptionalAuth: optionalAuth,
		Idempotency:  next,
		LoginLimiter: next,
	}
}
