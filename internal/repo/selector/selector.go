package selector

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/repo/txn"
)

type S[T any] struct {
	DB *bun.DB
}

func New[T any](db *bun.DB) S[T] {
	return S[T]{
		DB: db,
	}
}

func (r S[T]) SelectOne(ctx context.Context, fn func(q *bun.SelectQuery) *bun.SelectQuery) (*T, error) {
	var model T
	err := fn(txn.Conn(ctx, r.DB).NewSelect().Model(&model)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, acterr.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return &model, nil
}

func (r S[T]) SelectMany(ctx context.Context, fn func(q *bun.SelectQuery) *bun.SelectQuery) ([]*T, error) {
	model := []*T{}
	err := fn(txn.Conn(ctx, r.DB).NewSelect().Model(&model)).Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	return model, nil
}

func (r S[T]) Exists(ctx context.Context, fn func(q *bun.SelectQuery) *bun.SelectQuery) (bool, error) {
	return fn(txn.Conn(ctx, r.DB).NewSelect().Model((*T)(nil))).Exists(ctx)
}
