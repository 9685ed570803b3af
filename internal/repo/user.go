package repo

import (
	"context"

	"github.com/uptrace/bun"

	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/repo/selector"
	"actiapp.dev/backend/internal/repo/txn"
)

type User struct {
	db  *bun.DB
	sel selector.S[model.User]
}

func NewUser(db *bun.DB) *User {
	return &User{db: db, sel: selector.New[model.User](db)}
}

func (r *User) CreateUser(ctx context.Context, user *model.User) error {
	_, err := txn.Conn(ctx, r.db).NewInsert().
		Model(user).
		Returning("*").
		Exec(ctx)
	return err
}

func (r *User) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("user_id = ?", userID)
	})
}

func (r *User) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("username = ?", username)
	})
}

func (r *User) IsUsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	return r.sel.Exists(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("username = ?", username).WhereOr("email = ?", email)
	})
}

func (r *User) GetUserIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	var ids []string
	err := txn.Conn(ctx, r.db).NewSelect().
		Model((*model.User)(nil)).
		Column("user_id").
		Where("organization_id = ?", orgID).
		Scan(ctx, &ids)
	return ids, err
}
