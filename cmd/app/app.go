package app

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"actiapp.dev/backend/cmd/app/cli/migrate"
	"actiapp.dev/backend/cmd/app/cli/seedadmin"
	"actiapp.dev/backend/cmd/app/server"
	"actiapp.dev/backend/internal/pkg/bininfo"
)

func Run() {
	app := &cli.App{
		Name:        "actiapp",
		Description: "ActiApp backend: multi-tenant activity tracking with a single running timer per user. Built with Go, fiber, bun and go.uber.org/fx. Uses NATS for session events and Redis for caching and locking.",
		Version:     bininfo.Version,
		Commands: []*cli.Command{
			server.Command(),
			migrate.Command(),
			seedadmin.Command(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("failed to run app")
	}
}
