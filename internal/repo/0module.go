package repo

import (
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/repo/txn"
)

func Module() fx.Option {
	return fx.Module("repo", fx.Provide(
		txn.New,
		NewUser,
		NewActivity,
		NewOrganization,
	))
}
