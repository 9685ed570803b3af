package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T {
	return &v
}

func activity(id, userID string) *model.Activity {
	a := &model.Activity{
		ActivityID:     id,
		Title:          id,
		Category:       "work",
		Subcategory:    "focus",
		OrganizationID: ptr("org-1"),
	}
	if userID != "" {
		a.UserID = ptr(userID)
	}
	return a
}

func activeCount(activities []*model.Activity, userID string) int {
	n := 0
	for _, a := range activities {
		if a.OwnedBy(userID) && a.Active() {
			n++
		}
	}
	return n
}

func TestExampleScenario(t *testing.T) {
	a := activity("A", "u1")
	a.Title = "Reading"
	b := activity("B", "u1")
	b.Title = "Writing"
	all := []*model.Activity{a, b}

	tr, err := Start("u1", "org-1", all, "A", t0)
	require.NoError(t, err)
	assert.Empty(t, tr.Closed)
	assert.Equal(t, t0, *a.StartTime)
	assert.Nil(t, a.EndTime)

	tr, err = Start("u1", "org-1", all, "B", t0.Add(10*time.Second))
	require.NoError(t, err)
	require.Len(t, tr.Closed, 1)
	assert.Same(t, a, tr.Closed[0])
	assert.Equal(t, []*model.Activity{a, b}, tr.Mutated())
	assert.Equal(t, t0.Add(10*time.Second), *a.EndTime)
	assert.Equal(t, t0.Add(10*time.Second), *b.StartTime)
	assert.Nil(t, b.EndTime)
	assert.Equal(t, 1, activeCount(all, "u1"))

	assert.Equal(t, "00:00:10", FormatElapsed(Elapsed(b, t0.Add(20*time.Second))))

	stopped, changed, err := Stop("u1", b, t0.Add(40*time.Second), constant.StopModeReject)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, t0.Add(40*time.Second), *stopped.EndTime)
	assert.Equal(t, 0, activeCount(all, "u1"))
	assert.Equal(t, 30*time.Second, Duration(b))
}

func TestRestartActiveOnlyResetsStart(t *testing.T) {
	a := activity("A", "u1")
	b := activity("B", "u1")
	b.StartTime = ptr(t0.Add(-time.Hour))
	b.EndTime = ptr(t0.Add(-30 * time.Minute))
	all := []*model.Activity{a, b}

	_, err := Start("u1", "org-1", all, "A", t0)
	require.NoError(t, err)

	tr, err := Start("u1", "org-1", all, "A", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, tr.Closed)
	assert.Equal(t, []*model.Activity{a}, tr.Mutated())
	assert.Equal(t, t0.Add(time.Minute), *a.StartTime)
	assert.Nil(t, a.EndTime)
	assert.Equal(t, t0.Add(-30*time.Minute), *b.EndTime)
}

func TestStartCompletedReopens(t *testing.T) {
	a := activity("A", "u1")
	a.StartTime = ptr(t0.Add(-time.Hour))
	a.EndTime = ptr(t0.Add(-time.Minute))

	_, err := Start("u1", "org-1", []*model.Activity{a}, "A", t0)
	require.NoError(t, err)
	assert.Equal(t, t0, *a.StartTime)
	assert.Nil(t, a.EndTime)
}

func TestStartFailures(t *testing.T) {
	mine := activity("A", "u1")
	theirs := activity("B", "u2")

	_, err := Start("u1", "org-1", []*model.Activity{mine}, "missing", t0)
	assert.True(t, errors.Is(err, acterr.ErrNotFound))

	_, err = Start("u1", "org-1", []*model.Activity{mine, theirs}, "B", t0)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
	assert.Nil(t, theirs.StartTime)
}

func TestStartClaimsOrganizationActivity(t *testing.T) {
	running := activity("A", "u1")
	running.StartTime = ptr(t0.Add(-time.Minute))
	shared := activity("S", "")

	tr, err := Start("u1", "org-1", []*model.Activity{running, shared}, "S", t0)
	require.NoError(t, err)
	assert.True(t, tr.Claimed)
	assert.True(t, shared.OwnedBy("u1"))
	assert.Equal(t, t0, *running.EndTime)

	other := activity("T", "")
	other.OrganizationID = ptr("org-2")
	_, err = Start("u1", "org-1", []*model.Activity{other}, "T", t0)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
	assert.True(t, other.Unclaimed())
}

func TestStopModes(t *testing.T) {
	a := activity("A", "u1")
	a.StartTime = ptr(t0)
	a.EndTime = ptr(t0.Add(time.Minute))

	_, _, err := Stop("u1", a, t0.Add(time.Hour), constant.StopModeReject)
	assert.True(t, errors.Is(err, acterr.ErrConflict))
	assert.Equal(t, 409, ErrNotActive.StatusCode)

	got, changed, err := Stop("u1", a, t0.Add(time.Hour), constant.StopModeNoop)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, t0.Add(time.Minute), *got.EndTime)

	never := activity("N", "u1")
	_, _, err = Stop("u1", never, t0, constant.StopModeReject)
	assert.True(t, errors.Is(err, acterr.ErrConflict))
}

func TestStopOwnership(t *testing.T) {
	a := activity("A", "u2")
	a.StartTime = ptr(t0)

	_, _, err := Stop("u1", a, t0.Add(time.Minute), constant.StopModeReject)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))
	assert.Nil(t, a.EndTime)

	_, _, err = Stop("u1", nil, t0, constant.StopModeReject)
	assert.True(t, errors.Is(err, acterr.ErrNotFound))
}

func TestApplyTimes(t *testing.T) {
	a := activity("A", "u1")
	a.StartTime = ptr(t0)
	b := activity("B", "u1")
	all := []*model.Activity{a, b}

	closed, err := ApplyTimes(b, all, TimePatch{SetStart: true, Start: ptr(t0.Add(time.Minute)), SetEnd: true}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []*model.Activity{a}, closed)
	assert.Equal(t, t0.Add(2*time.Minute), *a.EndTime)
	assert.Equal(t, 1, activeCount(all, "u1"))

	_, err = ApplyTimes(b, all, TimePatch{SetEnd: true, End: ptr(t0)}, t0.Add(3*time.Minute))
	assert.True(t, errors.Is(err, acterr.ErrInvalidReq))
	assert.Nil(t, b.EndTime)

	closed, err = ApplyTimes(b, all, TimePatch{SetEnd: true, End: ptr(t0.Add(5 * time.Minute))}, t0.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.True(t, b.Completed())

	shared := activity("S", "")
	_, err = ApplyTimes(shared, all, TimePatch{SetStart: true, Start: ptr(t0)}, t0)
	assert.True(t, errors.Is(err, acterr.ErrInvalidReq))
}
