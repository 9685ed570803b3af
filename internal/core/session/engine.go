// Package session holds the single-active-timer rules: a user has at most one
// activity with a start time and no end time. The functions here are pure; the
// caller is responsible for loading the user's activities under the per-user
// lock and persisting the returned mutations in one transaction.
package session

import (
	"time"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
)

var ErrNotActive = acterr.ErrConflict.Msg("activity is not running")

// Transition is the result of a start. Closed holds the previously active
// activities that were stopped to make room for Started, in write order.
type Transition struct {
	Closed  []*model.Activity
	Started *model.Activity
	// Claimed is true when Started was an organization activity picked up by the user.
	Claimed bool
}

// Mutated returns the changed activities in the order they must be written.
func (t *Transition) Mutated() []*model.Activity {
	return append(append([]*model.Activity{}, t.Closed...), t.Started)
}

// Start starts targetID for userID at now. activities must contain every
// active activity of the user plus the target itself.
func Start(userID, orgID string, activities []*model.Activity, targetID string, now time.Time) (*Transition, error) {
	target := find(activities, targetID)
	if target == nil {
		return nil, acterr.ErrNotFound.Msg("activity not found")
	}

	t := &Transition{Started: target}
	switch {
	case target.OwnedBy(userID):
	case target.Unclaimed() && target.InOrganization(orgID):
		id := userID
		target.UserID = &id
		t.Claimed = true
	default:
		return nil, acterr.ErrForbidden.Msg("activity belongs to another user")
	}

	for _, a := range activities {
		if a == target || !a.OwnedBy(userID) || !a.Active() {
			continue
		}
		end := now
		a.EndTime = &end
		a.UpdatedAt = now
		t.Closed = append(t.Closed, a)
	}

	start := now
	target.StartTime = &start
	target.EndTime = nil
	target.UpdatedAt = now

	return t, nil
}

// Stop stops target for userID at now. With mode noop, stopping an activity
// that is not running returns it unchanged and reports changed as false.
func Stop(userID string, target *model.Activity, now time.Time, mode string) (a *model.Activity, changed bool, err error) {
	if target == nil {
		return nil, false, acterr.ErrNotFound.Msg("activity not found")
	}
	if !target.OwnedBy(userID) {
		return nil, false, acterr.ErrForbidden.Msg("activity belongs to another user")
	}

	if !target.Active() {
		if mode == constant.StopModeNoop {
			return target, false, nil
		}
		return nil, false, ErrNotActive
	}

	end := now
	target.EndTime = &end
	target.UpdatedAt = now
	return target, true, nil
}

// TimePatch is a partial update of an activity's start and end times. A field
// is applied only when its Set flag is true; a nil value clears the time.
type TimePatch struct {
	SetStart bool
	Start    *time.Time
	SetEnd   bool
	End      *time.Time
}

func (p TimePatch) Empty() bool {
	return !p.SetStart && !p.SetEnd
}

// ApplyTimes applies p to target. When the result leaves target running, any
// other running activity of its owner is closed at now, the same way Start does.
// activities must contain every active activity of the owner.
func ApplyTimes(target *model.Activity, activities []*model.Activity, p TimePatch, now time.Time) (closed []*model.Activity, err error) {
	start, end := target.StartTime, target.EndTime
	if p.SetStart {
		start = p.Start
	}
	if p.SetEnd {
		end = p.End
	}

	if start == nil && end != nil {
		return nil, acterr.ErrInvalidReq.Msg("endTime cannot be set on an activity without startTime")
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, acterr.ErrInvalidReq.Msg("endTime must not be before startTime")
	}

	running := start != nil && end == nil
	if running && target.Unclaimed() {
		return nil, acterr.ErrInvalidReq.Msg("organization activities must be started through the start endpoint")
	}

	target.StartTime = start
	target.EndTime = end
	target.UpdatedAt = now

	if !running {
		return nil, nil
	}

	for _, a := range activities {
		if a.ActivityID == target.ActivityID || !a.OwnedBy(*target.UserID) || !a.Active() {
			continue
		}
		e := now
		a.EndTime = &e
		a.UpdatedAt = now
		closed = append(closed, a)
	}
	return closed, nil
}

func find(activities []*model.Activity, id string) *model.Activity {
	for _, a := range activities {
		if a.ActivityID == id {
			return a
		}
	}
	return nil
}
