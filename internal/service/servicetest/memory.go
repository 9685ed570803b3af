// Package servicetest provides in-memory implementations of the service ports
// for tests that exercise services or controllers without Postgres, Redis or NATS.
package servicetest

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/samber/lo"

	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/repo"
)

// UniqueViolationError mirrors the database error raised on a unique index.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return "duplicate key value violates unique constraint \"" + e.Constraint + "\""
}

// UniqueViolation reports the constraint of a UniqueViolationError.
func UniqueViolation(err error) (string, bool) {
	var uv *UniqueViolationError
	if errors.As(err, &uv) {
		return uv.Constraint, true
	}
	return "", false
}

// MemStore is an in-memory stand-in for the three repositories and the
// transactor. Transactions are serialized and roll back on error.
type MemStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users      map[string]*model.User
	orgs       map[string]*model.Organization
	activities map[string]*model.Activity

	hideRunning  bool
	onLockedRead func(activityID string)
}

// OnLockedRead registers fn to run before every locked read of an activity.
func (m *MemStore) OnLockedRead(fn func(activityID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onLockedRead = fn
}

// HideRunning makes the locked read of running activities return nothing, as
// if another writer had started one that this transaction cannot see.
func (m *MemStore) HideRunning(hide bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hideRunning = hide
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:      map[string]*model.User{},
		orgs:       map[string]*model.Organization{},
		activities: map[string]*model.Activity{},
	}
}

func cloneActivity(a *model.Activity) *model.Activity {
	c := *a
	return &c
}

func cloneUser(u *model.User) *model.User {
	c := *u
	return &c
}

func cloneOrg(o *model.Organization) *model.Organization {
	c := *o
	return &c
}

func (m *MemStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	users := lo.MapValues(m.users, func(u *model.User, _ string) *model.User { return cloneUser(u) })
	orgs := lo.MapValues(m.orgs, func(o *model.Organization, _ string) *model.Organization { return cloneOrg(o) })
	activities := lo.MapValues(m.activities, func(a *model.Activity, _ string) *model.Activity { return cloneActivity(a) })
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.users, m.orgs, m.activities = users, orgs, activities
		m.mu.Unlock()
		return err
	}
	return nil
}

// users

func (m *MemStore) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return &UniqueViolationError{Constraint: "users_username_key"}
		}
	}
	m.users[user.UserID] = cloneUser(user)
	return nil
}

func (m *MemStore) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, acterr.ErrNotFound
	}
	return cloneUser(u), nil
}

func (m *MemStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, acterr.ErrNotFound
}

func (m *MemStore) IsUsernameOrEmailTaken(ctx context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) GetUserIDsByOrganization(ctx context.Context, orgID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, u := range m.users {
		if u.OrgID() == orgID {
			ids = append(ids, u.UserID)
		}
	}
	return ids, nil
}

// organizations

func (m *MemStore) CreateOrganization(ctx context.Context, org *model.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Name == org.Name {
			return &UniqueViolationError{Constraint: "organizations_name_key"}
		}
	}
	m.orgs[org.OrganizationID] = cloneOrg(org)
	return nil
}

func (m *MemStore) GetOrganizations(ctx context.Context) ([]*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orgs := lo.Map(lo.Values(m.orgs), func(o *model.Organization, _ int) *model.Organization { return cloneOrg(o) })
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

func (m *MemStore) GetOrganizationByID(ctx context.Context, orgID string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orgs[orgID]
	if !ok {
		return nil, acterr.ErrNotFound
	}
	return cloneOrg(o), nil
}

func (m *MemStore) IsNameTaken(ctx context.Context, name, exceptID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.Name == name && o.OrganizationID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[org.OrganizationID]; !ok {
		return acterr.ErrNotFound
	}
	m.orgs[org.OrganizationID] = cloneOrg(org)
	return nil
}

func (m *MemStore) DeleteOrganization(ctx context.Context, orgID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[orgID]; !ok {
		return acterr.ErrNotFound
	}
	delete(m.orgs, orgID)
	for _, u := range m.users {
		if u.OrgID() == orgID {
			u.OrganizationID = nil
		}
	}
	for _, a := range m.activities {
		if a.InOrganization(orgID) {
			a.OrganizationID = nil
		}
	}
	return nil
}

// activities

func (m *MemStore) CreateActivity(ctx context.Context, activity *model.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activities[activity.ActivityID] = cloneActivity(activity)
	return nil
}

func (m *MemStore) GetActivityByID(ctx context.Context, activityID string) (*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[activityID]
	if !ok {
		return nil, acterr.ErrNotFound
	}
	return cloneActivity(a), nil
}

func (m *MemStore) GetActivityByIDForUpdate(ctx context.Context, activityID string) (*model.Activity, error) {
	m.mu.Lock()
	hook := m.onLockedRead
	m.mu.Unlock()
	if hook != nil {
		hook(activityID)
	}
	return m.GetActivityByID(ctx, activityID)
}

func (m *MemStore) filter(fn func(a *model.Activity) bool) []*model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Activity
	for _, a := range m.activities {
		if fn(a) {
			out = append(out, cloneActivity(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ActivityID > out[j].ActivityID })
	return out
}

func (m *MemStore) GetActivities(ctx context.Context, scope policy.Scope) ([]*model.Activity, error) {
	return m.filter(scope.Includes), nil
}

func (m *MemStore) GetActiveActivitiesByUserForUpdate(ctx context.Context, userID string) ([]*model.Activity, error) {
	m.mu.Lock()
	hide := m.hideRunning
	m.mu.Unlock()
	if hide {
		return nil, nil
	}
	return m.filter(func(a *model.Activity) bool { return a.OwnedBy(userID) && a.Active() }), nil
}

func (m *MemStore) GetActiveActivityByUser(ctx context.Context, userID string) (*model.Activity, error) {
	active := m.filter(func(a *model.Activity) bool { return a.OwnedBy(userID) && a.Active() })
	if len(active) == 0 {
		return nil, acterr.ErrNotFound
	}
	return active[0], nil
}

func (m *MemStore) GetCompletedActivitiesByUser(ctx context.Context, userID string) ([]*model.Activity, error) {
	out := m.filter(func(a *model.Activity) bool { return a.OwnedBy(userID) && a.Completed() })
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.After(*out[j].EndTime) })
	return out, nil
}

// UpdateActivity replaces the stored activity and, like the partial unique
// index, refuses a second running activity for a user.
func (m *MemStore) UpdateActivity(ctx context.Context, activity *model.Activity, columns ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[activity.ActivityID]; !ok {
		return acterr.ErrNotFound
	}
	if activity.Active() && activity.UserID != nil {
		for id, a := range m.activities {
			if id != activity.ActivityID && a.OwnedBy(*activity.UserID) && a.Active() {
				return &UniqueViolationError{Constraint: repo.ActiveIndexName}
			}
		}
	}
	m.activities[activity.ActivityID] = cloneActivity(activity)
	return nil
}

func (m *MemStore) DeleteActivity(ctx context.Context, activityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[activityID]; !ok {
		return acterr.ErrNotFound
	}
	delete(m.activities, activityID)
	return nil
}

// Peek returns a copy of the stored activity, or nil.
func (m *MemStore) Peek(id string) *model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return nil
	}
	return cloneActivity(a)
}

// Assign sets the owner of a stored activity.
func (m *MemStore) Assign(activityID, userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.activities[activityID]; ok {
		a.UserID = &userID
	}
}

func (m *MemStore) ActiveCount(userID string) int {
	return len(m.filter(func(a *model.Activity) bool { return a.OwnedBy(userID) && a.Active() }))
}

func (m *MemStore) UserCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *MemStore) OrganizationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orgs)
}
