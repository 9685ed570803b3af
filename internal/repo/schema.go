package repo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"

	"actiapp.dev/backend/internal/model"
)

// CreateSchema creates the tables and indexes the repositories rely on. It is
// idempotent and safe to run against an already migrated database.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewCreateTable().
			Model((*model.Organization)(nil)).
			IfNotExists().
			Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to create organizations table")
		}

		if _, err := tx.NewCreateTable().
			Model((*model.User)(nil)).
			IfNotExists().
			ForeignKey(`("organization_id") REFERENCES "organizations" ("organization_id") ON DELETE SET NULL`).
			Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to create users table")
		}

		if _, err := tx.NewCreateTable().
			Model((*model.Activity)(nil)).
			IfNotExists().
			ForeignKey(`("user_id") REFERENCES "users" ("user_id") ON DELETE CASCADE`).
			ForeignKey(`("organization_id") REFERENCES "organizations" ("organization_id") ON DELETE SET NULL`).
			Exec(ctx); err != nil {
			return errors.Wrap(err, "failed to create activities table")
		}

		indexes := []*bun.CreateIndexQuery{
			tx.NewCreateIndex().
				Model((*model.Activity)(nil)).
				Index(ActiveIndexName).
				IfNotExists().
				Unique().
				Column("user_id").
				Where("start_time IS NOT NULL AND end_time IS NULL AND user_id IS NOT NULL"),
			tx.NewCreateIndex().
				Model((*model.Activity)(nil)).
				Index("activities_user_id_idx").
				IfNotExists().
				Column("user_id"),
			tx.NewCreateIndex().
				Model((*model.Activity)(nil)).
				Index("activities_organization_id_idx").
				IfNotExists().
				Column("organization_id"),
			tx.NewCreateIndex().
				Model((*model.User)(nil)).
				Index("users_organization_id_idx").
				IfNotExists().
				Column("organization_id"),
		}
		for _, q := range indexes {
			if _, err := q.Exec(ctx); err != nil {
				return errors.Wrap(err, "failed to create index")
			}
		}

		return nil
	})
}
