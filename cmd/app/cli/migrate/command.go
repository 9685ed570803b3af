package migrate

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"

	cliapp "actiapp.dev/backend/cmd/app/cli"
	"actiapp.dev/backend/internal/repo"
)

type CommandDeps struct {
	fx.In

	DB *bun.DB
}

func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "create tables and indexes",
		Action: func(ctx *cli.Context) error {
			deps, stop := cliapp.Deps[CommandDeps]()
			defer stop()

			log.Info().Str("evt.name", "migrate.start").Msg("creating schema")
			if err := repo.CreateSchema(ctx.Context, deps.DB); err != nil {
				return errors.Wrap(err, "failed to create schema")
			}
			log.Info().Str("evt.name", "migrate.done").Msg("schema is up to date")

			return nil
		},
	}
}
