package app

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/app/appconfig"
	"actiapp.dev/backend/internal/app/appcontext"
	"actiapp.dev/backend/internal/controller"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/infra"
	"actiapp.dev/backend/internal/pkg/crypto"
	"actiapp.dev/backend/internal/pkg/logger"
	"actiapp.dev/backend/internal/pkg/token"
	"actiapp.dev/backend/internal/repo"
	"actiapp.dev/backend/internal/server"
	"actiapp.dev/backend/internal/service"
)

func Options(ctx appcontext.Ctx, additionalOpts ...fx.Option) []fx.Option {
	conf, err := appconfig.Parse(ctx)
	if err != nil {
		panic(err)
	}

	// logger and configuration are the only two things that are not in the fx graph
	// because some other packages need them to be initialized before fx starts
	logger.Configure(conf)

	baseOpts := []fx.Option{
		// fx meta
		fx.WithLogger(logger.Fx),

		// Misc
		fx.Supply(conf),
		fx.Provide(
			clockwork.NewRealClock,
			newPolicy,
			newTokenIssuer,
			newPasswordHasher,
		),

		// Infrastructures
		infra.Module(),

		// Servers
		server.Module(),

		// Repositories
		repo.Module(),

		// Services
		service.Module(),

		// Global Singleton Inits: Keep those before controllers to ensure they are initialized
		// before controllers are registered as controllers are also fx#Invoke functions which
		// are called in the order of their registration.
		fx.Invoke(infra.SentryInit),

		// Controllers
		controller.Module(),

		// fx Extra Options
		fx.StartTimeout(15 * time.Second),
		// StopTimeout is not typically needed, since we're using fiber's Shutdown(),
		// in which fiber has its own IdleTimeout for controlling the shutdown timeout.
		// It acts as a countermeasure in case the fiber app is not properly shutting down.
		fx.StopTimeout(conf.HTTPServerShutdownTimeout + 5*time.Second),
	}

	return append(baseOpts, additionalOpts...)
}

func New(ctx appcontext.Ctx, additionalOpts ...fx.Option) *fx.App {
	return fx.New(Options(ctx, additionalOpts...)...)
}

func newPolicy(conf *appconfig.Config) *policy.Policy {
	return policy.New(conf.UserActivityVisibility)
}

func newTokenIssuer(conf *appconfig.Config, clock clockwork.Clock) *token.Issuer {
	return token.NewIssuer(token.Config{
		Secret: conf.JWTSecret,
		Issuer: conf.JWTIssuer,
		TTL:    conf.JWTTTL,
	}, clock)
}

func newPasswordHasher(conf *appconfig.Config) *crypto.PasswordHasher {
	return crypto.NewPasswordHasher(conf.BcryptCost)
}
