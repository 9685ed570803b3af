package repo

import (
	"context"

	"github.com/uptrace/bun"

	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/repo/selector"
	"actiapp.dev/backend/internal/repo/txn"
)

type Organization struct {
	db  *bun.DB
	sel selector.S[model.Organization]
}

func NewOrganization(db *bun.DB) *Organization {
	return &Organization{db: db, sel: selector.New[model.Organization](db)}
}

func (r *Organization) CreateOrganization(ctx context.Context, org *model.Organization) error {
	_, err := txn.Conn(ctx, r.db).NewInsert().
		Model(org).
		Returning("*").
		Exec(ctx)
	return err
}

func (r *Organization) GetOrganizations(ctx context.Context) ([]*model.Organization, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Order("name ASC")
	})
}

func (r *Organization) GetOrganizationByID(ctx context.Context, orgID string) (*model.Organization, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("organization_id = ?", orgID)
	})
}

func (r *Organization) IsNameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	return r.sel.Exists(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		q = q.Where("name = ?", name)
		if exceptID != "" {
			q = q.Where("organization_id != ?", exceptID)
		}
		return q
	})
}

func (r *Organization) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	res, err := txn.Conn(ctx, r.db).NewUpdate().
		Model(org).
		ExcludeColumn("organization_id", "created_at").
		WherePK().
		Returning("*").
		Exec(ctx)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *Organization) DeleteOrganization(ctx context.Context, orgID string) error {
	res, err := txn.Conn(ctx, r.db).NewDelete().
		Model((*model.Organization)(nil)).
		Where("organization_id = ?", orgID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func affectedOne(res interface{ RowsAffected() (int64, error) }) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return acterr.ErrNotFound
	}
	return nil
}
