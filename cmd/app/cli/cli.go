package cli

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/app"
	"actiapp.dev/backend/internal/app/appcontext"
)

func Start(module fx.Option) *fx.App {
	a := app.New(appcontext.Declare(appcontext.EnvCLI), module)
	if err := a.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start application")
	}
	return a
}

// Deps builds the application graph and populates T from it. The returned
// function stops the graph, closing every connection it opened.
func Deps[T any]() (T, func()) {
	var deps T
	a := Start(fx.Populate(&deps))
	return deps, func() {
		if err := a.Stop(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to stop application cleanly")
		}
	}
}
