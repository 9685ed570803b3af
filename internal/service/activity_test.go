package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v3"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/service"
	"actiapp.dev/backend/internal/service/servicetest"
)

var (
	alice = &policy.Actor{UserID: "u-alice", Role: constant.RoleUser, OrganizationID: "org-1"}
	bob   = &policy.Actor{UserID: "u-bob", Role: constant.RoleUser, OrganizationID: "org-1"}
	admin = &policy.Actor{UserID: "u-admin", Role: constant.RoleAdminOrg, OrganizationID: "org-1"}
)

func create(t *testing.T, f *servicetest.Fixture, actor *policy.Actor, title string, orgWide bool) *model.Activity {
	t.Helper()
	a, err := f.Activity.CreateActivity(context.Background(), actor, &types.CreateActivityRequest{
		Title:       title,
		Category:    "study",
		Subcategory: "books",
		OrgWide:     orgWide,
	})
	require.NoError(t, err)
	// distinct ULID timestamps keep listing order stable
	f.Clock.Advance(time.Millisecond)
	return a
}

func TestSessionExampleScenario(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnPlusOrgUnclaimed, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, alice, "Reading", false)
	b := create(t, f, alice, "Writing", false)
	start := f.Clock.Now()

	tr, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)
	assert.Empty(t, tr.Closed)
	assert.Equal(t, start, *f.Store.Peek(a.ActivityID).StartTime)

	f.Clock.Advance(10 * time.Second)
	tr, err = f.Activity.StartActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	require.Len(t, tr.Closed, 1)
	assert.Equal(t, a.ActivityID, tr.Closed[0].ActivityID)

	storedA, storedB := f.Store.Peek(a.ActivityID), f.Store.Peek(b.ActivityID)
	assert.Equal(t, start.Add(10*time.Second), *storedA.EndTime)
	assert.Equal(t, start.Add(10*time.Second), *storedB.StartTime)
	assert.Nil(t, storedB.EndTime)
	assert.Equal(t, 1, f.Store.ActiveCount(alice.UserID))

	f.Clock.Advance(10 * time.Second)
	active, err := f.Activity.GetActiveSession(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, active.Activity)
	assert.Equal(t, b.ActivityID, active.Activity.ActivityID)
	assert.Equal(t, "00:00:10", active.Elapsed)
	assert.EqualValues(t, 10, active.ElapsedSeconds)

	f.Clock.Advance(20 * time.Second)
	stopped, err := f.Activity.StopActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, start.Add(40*time.Second), *stopped.EndTime)
	assert.Equal(t, 0, f.Store.ActiveCount(alice.UserID))

	history, err := f.Activity.GetHistory(ctx, alice)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, b.ActivityID, history[0].ActivityID)
	assert.Equal(t, "00:00:30", history[0].Duration)
	assert.Equal(t, "00:00:10", history[1].Duration)

	assert.Equal(t, []string{"started", "stopped", "started", "stopped"}, f.Events.Types())

	active, err = f.Activity.GetActiveSession(ctx, alice)
	require.NoError(t, err)
	assert.Nil(t, active.Activity)
}

func TestRestartDoesNotTouchNeighbours(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, alice, "A", false)
	b := create(t, f, alice, "B", false)

	_, err := f.Activity.StartActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	f.Clock.Advance(time.Minute)
	_, err = f.Activity.StopActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	completedB := f.Store.Peek(b.ActivityID)

	_, err = f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)
	f.Clock.Advance(time.Minute)
	tr, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)
	assert.Empty(t, tr.Closed)

	assert.Equal(t, f.Clock.Now(), *f.Store.Peek(a.ActivityID).StartTime)
	assert.Equal(t, completedB, f.Store.Peek(b.ActivityID))
}

func TestConcurrentStartsKeepOneActive(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	ids := []string{
		create(t, f, alice, "A", false).ActivityID,
		create(t, f, alice, "B", false).ActivityID,
		create(t, f, alice, "C", false).ActivityID,
	}

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := f.Activity.StartActivity(ctx, alice, id)
			assert.NoError(t, err)
		}(ids[i%len(ids)])
	}
	wg.Wait()

	assert.Equal(t, 1, f.Store.ActiveCount(alice.UserID))
}

func TestStopMode(t *testing.T) {
	ctx := context.Background()

	reject := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	a := create(t, reject, alice, "A", false)
	_, err := reject.Activity.StopActivity(ctx, alice, a.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrConflict))

	_, err = reject.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)
	_, err = reject.Activity.StopActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)
	_, err = reject.Activity.StopActivity(ctx, alice, a.ActivityID)
	var actiErr *acterr.ActiError
	require.True(t, errors.As(err, &actiErr))
	assert.Equal(t, 409, actiErr.StatusCode)

	noop := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeNoop)
	b := create(t, noop, alice, "B", false)
	_, err = noop.Activity.StartActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	noop.Clock.Advance(time.Second)
	first, err := noop.Activity.StopActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	noop.Clock.Advance(time.Second)
	second, err := noop.Activity.StopActivity(ctx, alice, b.ActivityID)
	require.NoError(t, err)
	assert.Equal(t, *first.EndTime, *second.EndTime)
	assert.Len(t, noop.Events.Types(), 2)
}

func TestStartOthersActivity(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, bob, "Bob's", false)
	_, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))

	_, err = f.Activity.StartActivity(ctx, alice, "missing")
	assert.True(t, errors.Is(err, acterr.ErrNotFound))

	_, err = f.Activity.StopActivity(ctx, alice, a.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
}

func TestStartClaimsOrganizationActivity(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnPlusOrgUnclaimed, constant.StopModeReject)
	ctx := context.Background()

	shared := create(t, f, admin, "Inventory", true)
	assert.True(t, shared.Unclaimed())
	assert.Equal(t, "org-1", *shared.OrganizationID)

	tr, err := f.Activity.StartActivity(ctx, alice, shared.ActivityID)
	require.NoError(t, err)
	assert.True(t, tr.Claimed)
	assert.True(t, f.Store.Peek(shared.ActivityID).OwnedBy(alice.UserID))
	assert.Equal(t, []string{"claimed", "started"}, f.Events.Types())

	_, err = f.Activity.StartActivity(ctx, bob, shared.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
}

func TestSessionBusy(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()
	a := create(t, f, alice, "A", false)

	f.Locker.SetBusy(alice.UserID)
	_, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrSessionBusy))
	assert.Nil(t, f.Store.Peek(a.ActivityID).StartTime)
}

func TestCreateActivity(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, alice, "A", false)
	assert.True(t, a.OwnedBy(alice.UserID))
	assert.Equal(t, "org-1", *a.OrganizationID)
	assert.Nil(t, a.StartTime)

	_, err := f.Activity.CreateActivity(ctx, alice, &types.CreateActivityRequest{Title: "x", Category: "y", Subcategory: "z", OrgWide: true})
	assert.True(t, errors.Is(err, acterr.ErrForbidden))

	_, err = f.Activity.CreateActivity(ctx, alice, &types.CreateActivityRequest{Title: "x", Category: "y", Subcategory: "z", Organization: lo.ToPtr("org-2")})
	assert.True(t, errors.Is(err, acterr.ErrForbidden))

	own, err := f.Activity.CreateActivity(ctx, alice, &types.CreateActivityRequest{Title: "x", Category: "y", Subcategory: "z", Organization: lo.ToPtr("org-1")})
	require.NoError(t, err)
	assert.Equal(t, "org-1", *own.OrganizationID)

	loner := &policy.Actor{UserID: "u-loner", Role: constant.RoleUser}
	b := create(t, f, loner, "B", false)
	assert.Nil(t, b.OrganizationID)
}

func TestListNeverLeaksOtherUsers(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnPlusOrgUnclaimed, constant.StopModeReject)
	ctx := context.Background()

	create(t, f, alice, "mine", false)
	create(t, f, bob, "bob's", false)
	create(t, f, admin, "shared", true)
	create(t, f, &policy.Actor{UserID: "u-eve", Role: constant.RoleUser, OrganizationID: "org-2"}, "eve's", false)

	got, err := f.Activity.GetActivities(ctx, alice)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine", "shared"}, lo.Map(got, func(a *model.Activity, _ int) string { return a.Title }))
	for _, a := range got {
		assert.True(t, a.UserID == nil || *a.UserID == alice.UserID)
	}

	got, err = f.Activity.GetActivities(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	bobs, ok := lo.Find(got, func(a *model.Activity) bool { return a.OwnedBy(bob.UserID) })
	require.True(t, ok)
	_, err = f.Activity.GetActivityByID(ctx, alice, bobs.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
}

func TestModifyOthersActivityIsForbidden(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityWholeOrg, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, bob, "Bob's", false)

	bodies := []*types.UpdateActivityRequest{
		{},
		{Title: null.StringFrom("hijacked")},
		{StartTime: null.TimeFrom(servicetest.T0), HasStartTime: true},
		{HasEndTime: true},
	}
	for _, body := range bodies {
		_, err := f.Activity.UpdateActivity(ctx, alice, a.ActivityID, body)
		assert.True(t, errors.Is(err, acterr.ErrForbidden))
	}
	assert.True(t, errors.Is(f.Activity.DeleteActivity(ctx, alice, a.ActivityID), acterr.ErrForbidden))
	assert.Equal(t, "Bob's", f.Store.Peek(a.ActivityID).Title)

	_, err := f.Activity.UpdateActivity(ctx, alice, "missing", &types.UpdateActivityRequest{})
	assert.True(t, errors.Is(err, acterr.ErrNotFound))
	assert.True(t, errors.Is(f.Activity.DeleteActivity(ctx, alice, "missing"), acterr.ErrNotFound))

	updated, err := f.Activity.UpdateActivity(ctx, admin, a.ActivityID, &types.UpdateActivityRequest{Title: null.StringFrom("renamed")})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	require.NoError(t, f.Activity.DeleteActivity(ctx, bob, a.ActivityID))
}

func TestPatchTimesKeepsOneActive(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, alice, "A", false)
	b := create(t, f, alice, "B", false)

	_, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)

	f.Clock.Advance(time.Minute)
	now := f.Clock.Now()
	updated, err := f.Activity.UpdateActivity(ctx, alice, b.ActivityID, &types.UpdateActivityRequest{
		StartTime:    null.TimeFrom(now),
		HasStartTime: true,
		HasEndTime:   true,
	})
	require.NoError(t, err)
	assert.True(t, updated.Active())
	assert.Equal(t, now, *f.Store.Peek(a.ActivityID).EndTime)
	assert.Equal(t, 1, f.Store.ActiveCount(alice.UserID))

	_, err = f.Activity.UpdateActivity(ctx, alice, b.ActivityID, &types.UpdateActivityRequest{
		EndTime:    null.TimeFrom(now.Add(-time.Hour)),
		HasEndTime: true,
	})
	assert.True(t, errors.Is(err, acterr.ErrInvalidReq))
	assert.True(t, f.Store.Peek(b.ActivityID).Active())
}

func TestPatchTimesRechecksOwnerUnderLock(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnPlusOrgUnclaimed, constant.StopModeReject)
	ctx := context.Background()

	shared := create(t, f, admin, "Shared", true)
	f.Store.OnLockedRead(func(activityID string) {
		f.Store.OnLockedRead(nil)
		f.Store.Assign(activityID, bob.UserID)
	})

	_, err := f.Activity.UpdateActivity(ctx, admin, shared.ActivityID, &types.UpdateActivityRequest{
		StartTime:    null.TimeFrom(f.Clock.Now()),
		HasStartTime: true,
	})
	assert.True(t, errors.Is(err, acterr.ErrSessionBusy))
	assert.Nil(t, f.Store.Peek(shared.ActivityID).StartTime)
	assert.Equal(t, 0, f.Store.ActiveCount(bob.UserID))
}

func TestActiveIndexViolationIsConflict(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	a := create(t, f, alice, "A", false)
	b := create(t, f, alice, "B", false)

	_, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)

	f.Store.HideRunning(true)
	_, err = f.Activity.StartActivity(ctx, alice, b.ActivityID)
	assert.True(t, errors.Is(err, acterr.ErrConflict))
	assert.Equal(t, service.ErrAlreadyRunning, err)

	assert.True(t, f.Store.Peek(a.ActivityID).Active())
	assert.Nil(t, f.Store.Peek(b.ActivityID).StartTime)
	assert.Equal(t, 1, f.Store.ActiveCount(alice.UserID))
}

func TestOtherUniqueViolationsPassThrough(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()
	a := create(t, f, alice, "A", false)
	b := create(t, f, alice, "B", false)

	_, err := f.Activity.StartActivity(ctx, alice, a.ActivityID)
	require.NoError(t, err)

	f.Activity.UniqueViolation = func(error) (string, bool) { return "activities_pkey", true }
	f.Store.HideRunning(true)
	_, err = f.Activity.StartActivity(ctx, alice, b.ActivityID)
	require.Error(t, err)
	assert.False(t, errors.Is(err, acterr.ErrConflict))
}
