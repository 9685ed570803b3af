package service

import (
	"context"
	"time"

	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
)

// Transactor runs fn in a single database transaction. Repository calls made
// with the ctx passed to fn join that transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	IsUsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error)
	GetUserIDsByOrganization(ctx context.Context, orgID string) ([]string, error)
}

type OrganizationRepo interface {
	CreateOrganization(ctx context.Context, org *model.Organization) error
	GetOrganizations(ctx context.Context) ([]*model.Organization, error)
	GetOrganizationByID(ctx context.Context, orgID string) (*model.Organization, error)
	IsNameTaken(ctx context.Context, name, exceptID string) (bool, error)
	UpdateOrganization(ctx context.Context, org *model.Organization) error
	DeleteOrganization(ctx context.Context, orgID string) error
}

type ActivityRepo interface {
	CreateActivity(ctx context.Context, activity *model.Activity) error
	GetActivityByID(ctx context.Context, activityID string) (*model.Activity, error)
	GetActivityByIDForUpdate(ctx context.Context, activityID string) (*model.Activity, error)
	GetActivities(ctx context.Context, scope policy.Scope) ([]*model.Activity, error)
	GetActiveActivitiesByUserForUpdate(ctx context.Context, userID string) ([]*model.Activity, error)
	GetActiveActivityByUser(ctx context.Context, userID string) (*model.Activity, error)
	GetCompletedActivitiesByUser(ctx context.Context, userID string) ([]*model.Activity, error)
	UpdateActivity(ctx context.Context, activity *model.Activity, columns ...string) error
	DeleteActivity(ctx context.Context, activityID string) error
}

// SessionLocker serializes session changes of one user across instances.
type SessionLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...*SessionEvent)
}

type UserCache interface {
	MutexGetSet(ctx context.Context, key string, dest *model.User, valueFunc func() (*model.User, error), expire time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	Issue(subject, role string) (string, time.Time, error)
}
