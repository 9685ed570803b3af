package repo

import (
	"context"

	"github.com/uptrace/bun"

	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/repo/selector"
	"actiapp.dev/backend/internal/repo/txn"
)

// ActiveIndexName is the partial unique index allowing one running activity per user.
const ActiveIndexName = "activities_one_active_per_user"

type Activity struct {
	db  *bun.DB
	sel selector.S[model.Activity]
}

func NewActivity(db *bun.DB) *Activity {
	return &Activity{db: db, sel: selector.New[model.Activity](db)}
}

func (r *Activity) CreateActivity(ctx context.Context, activity *model.Activity) error {
	_, err := txn.Conn(ctx, r.db).NewInsert().
		Model(activity).
		Returning("*").
		Exec(ctx)
	return err
}

func (r *Activity) GetActivityByID(ctx context.Context, activityID string) (*model.Activity, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("activity_id = ?", activityID)
	})
}

// GetActivityByIDForUpdate locks the row until the surrounding transaction ends.
func (r *Activity) GetActivityByIDForUpdate(ctx context.Context, activityID string) (*model.Activity, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("activity_id = ?", activityID).For("UPDATE")
	})
}

func (r *Activity) GetActivities(ctx context.Context, scope policy.Scope) ([]*model.Activity, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return applyScope(q, scope).Order("created_at DESC")
	})
}

// GetActiveActivitiesByUserForUpdate returns the running activities of a user, locking them.
func (r *Activity) GetActiveActivitiesByUserForUpdate(ctx context.Context, userID string) ([]*model.Activity, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("user_id = ?", userID).
			Where("start_time IS NOT NULL").
			Where("end_time IS NULL").
			For("UPDATE")
	})
}

func (r *Activity) GetActiveActivityByUser(ctx context.Context, userID string) (*model.Activity, error) {
	return r.sel.SelectOne(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("user_id = ?", userID).
			Where("start_time IS NOT NULL").
			Where("end_time IS NULL").
			Order("start_time DESC").
			Limit(1)
	})
}

func (r *Activity) GetCompletedActivitiesByUser(ctx context.Context, userID string) ([]*model.Activity, error) {
	return r.sel.SelectMany(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("user_id = ?", userID).
			Where("start_time IS NOT NULL").
			Where("end_time IS NOT NULL").
			Order("end_time DESC")
	})
}

// UpdateActivity writes the given columns of activity, plus updated_at.
func (r *Activity) UpdateActivity(ctx context.Context, activity *model.Activity, columns ...string) error {
	res, err := txn.Conn(ctx, r.db).NewUpdate().
		Model(activity).
		Column(append(columns, "updated_at")...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func (r *Activity) DeleteActivity(ctx context.Context, activityID string) error {
	res, err := txn.Conn(ctx, r.db).NewDelete().
		Model((*model.Activity)(nil)).
		Where("activity_id = ?", activityID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func applyScope(q *bun.SelectQuery, scope policy.Scope) *bun.SelectQuery {
	switch scope.Kind {
	case policy.ScopeAll:
		return q
	case policy.ScopeOrganization:
		return q.Where("organization_id = ?", scope.OrganizationID)
	case policy.ScopeOwnPlusOrgUnclaimed:
		return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("user_id = ?", scope.UserID).
				WhereOr("user_id IS NULL AND organization_id = ?", scope.OrganizationID)
		})
	default:
		return q.Where("user_id = ?", scope.UserID)
	}
}
