package server

import (
	"context"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/app"
	"actiapp.dev/backend/internal/app/appconfig"
	"actiapp.dev/backend/internal/app/appcontext"
)

func Command() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "start server",
		Action: func(c *cli.Context) error {
			Run()
			return nil
		},
	}
}

// Run starts the HTTP server and blocks until an interrupt or terminate signal.
func Run() {
	app.New(appcontext.Declare(appcontext.EnvServer), fx.Invoke(listen)).Run()
}

func listen(app *fiber.App, conf *appconfig.Config, lc fx.Lifecycle) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", conf.ServiceAddress)
			if err != nil {
				return err
			}

			go func() {
				log.Info().
					Str("evt.name", "http.listen").
					Str("address", conf.ServiceAddress).
					Msg("server listening")
				if err := app.Listener(ln); err != nil {
					log.Error().Err(err).Msg("server terminated unexpectedly")
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if conf.DevMode {
				return nil
			}
			return app.ShutdownWithContext(ctx)
		},
	})
}
