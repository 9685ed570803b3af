package service

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"actiapp.dev/backend/internal/app/appconfig"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/core/session"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/actid"
	"actiapp.dev/backend/internal/pkg/observability"
	"actiapp.dev/backend/internal/repo"
	"actiapp.dev/backend/internal/repo/txn"
)

var ErrAlreadyRunning = acterr.ErrConflict.Msg("another activity of this user is already running")

type Activity struct {
	Repo     ActivityRepo
	Tx       Transactor
	Locker   SessionLocker
	Events   EventPublisher
	Policy   *policy.Policy
	Clock    clockwork.Clock
	StopMode string

	// UniqueViolation names the unique constraint err violates, if any.
	UniqueViolation func(err error) (constraint string, ok bool)
}

func NewActivity(activityRepo *repo.Activity, tx *txn.Transactor, locker *Locker, events *SessionEvents, pol *policy.Policy, clock clockwork.Clock, conf *appconfig.Config) *Activity {
	return &Activity{
		Repo:     activityRepo,
		Tx:       tx,
		Locker:   locker,
		Events:   events,
		Policy:   pol,
		Clock:    clock,
		StopMode: conf.SessionStopMode,

		UniqueViolation: txn.UniqueViolation,
	}
}

func (s *Activity) CreateActivity(ctx context.Context, actor *policy.Actor, req *types.CreateActivityRequest) (*model.Activity, error) {
	if err := s.Policy.CanCreate(actor, req.OrgWide); err != nil {
		return nil, err
	}
	if req.Organization != nil {
		if err := s.Policy.CanTargetOrganization(actor, *req.Organization); err != nil {
			return nil, err
		}
	}

	now := s.Clock.Now()
	activity := &model.Activity{
		ActivityID:  actid.NewAt(now),
		Title:       req.Title,
		Category:    req.Category,
		Subcategory: req.Subcategory,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if actor.OrganizationID != "" {
		activity.OrganizationID = lo.ToPtr(actor.OrganizationID)
	}
	if !req.OrgWide {
		activity.UserID = lo.ToPtr(actor.UserID)
	}

	if err := s.Repo.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (s *Activity) GetActivities(ctx context.Context, actor *policy.Actor) ([]*model.Activity, error) {
	return s.Repo.GetActivities(ctx, s.Policy.ListScope(actor))
}

func (s *Activity) GetActivityByID(ctx context.Context, actor *policy.Actor, activityID string) (*model.Activity, error) {
	activity, err := s.Repo.GetActivityByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.CanRead(actor, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

// UpdateActivity applies a partial update. Time changes run under the owner's
// session lock since they can start or stop a session.
func (s *Activity) UpdateActivity(ctx context.Context, actor *policy.Actor, activityID string, req *types.UpdateActivityRequest) (*model.Activity, error) {
	activity, err := s.Repo.GetActivityByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.CanModify(actor, activity); err != nil {
		return nil, err
	}

	patch := session.TimePatch{
		SetStart: req.HasStartTime,
		Start:    req.StartTime.Ptr(),
		SetEnd:   req.HasEndTime,
		End:      req.EndTime.Ptr(),
	}

	lockedFor := ""
	if !patch.Empty() && activity.UserID != nil {
		unlock, err := s.Locker.Lock(ctx, *activity.UserID)
		if err != nil {
			return nil, err
		}
		defer unlock()
		lockedFor = *activity.UserID
	}

	var closed []*model.Activity
	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		activity, err = s.Repo.GetActivityByIDForUpdate(ctx, activityID)
		if err != nil {
			return err
		}
		if err := s.Policy.CanModify(actor, activity); err != nil {
			return err
		}
		// the owner changed since the lock was chosen
		if !patch.Empty() && lo.FromPtr(activity.UserID) != lockedFor {
			return acterr.ErrSessionBusy
		}

		columns := applyText(activity, req)

		if !patch.Empty() {
			var running []*model.Activity
			if activity.UserID != nil {
				running, err = s.Repo.GetActiveActivitiesByUserForUpdate(ctx, *activity.UserID)
				if err != nil {
					return err
				}
			}
			closed, err = session.ApplyTimes(activity, running, patch, s.Clock.Now())
			if err != nil {
				return err
			}
			for _, c := range closed {
				if err := s.Repo.UpdateActivity(ctx, c, "end_time"); err != nil {
					return err
				}
			}
			columns = append(columns, "start_time", "end_time")
		}

		if len(columns) == 0 {
			return nil
		}
		if patch.Empty() {
			activity.UpdatedAt = s.Clock.Now()
		}
		return s.Repo.UpdateActivity(ctx, activity, columns...)
	})
	if err != nil {
		return nil, s.mapSessionErr(err)
	}

	if len(closed) > 0 {
		s.publishClosed(ctx, closed)
	}
	return activity, nil
}

func applyText(activity *model.Activity, req *types.UpdateActivityRequest) []string {
	var columns []string
	if req.Title.Valid {
		activity.Title = req.Title.String
		columns = append(columns, "title")
	}
	if req.Category.Valid {
		activity.Category = req.Category.String
		columns = append(columns, "category")
	}
	if req.Subcategory.Valid {
		activity.Subcategory = req.Subcategory.String
		columns = append(columns, "subcategory")
	}
	return columns
}

func (s *Activity) DeleteActivity(ctx context.Context, actor *policy.Actor, activityID string) error {
	activity, err := s.Repo.GetActivityByID(ctx, activityID)
	if err != nil {
		return err
	}
	if err := s.Policy.CanModify(actor, activity); err != nil {
		return err
	}
	return s.Repo.DeleteActivity(ctx, activityID)
}

// StartActivity starts the activity for the actor, stopping whatever else the
// actor had running. Both writes share one transaction under the actor's lock.
func (s *Activity) StartActivity(ctx context.Context, actor *policy.Actor, activityID string) (*session.Transition, error) {
	activity, err := s.Repo.GetActivityByID(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.Policy.CanStart(actor, activity); err != nil {
		return nil, err
	}

	unlock, err := s.Locker.Lock(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var t *session.Transition
	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.Repo.GetActivityByIDForUpdate(ctx, activityID)
		if err != nil {
			return err
		}
		running, err := s.Repo.GetActiveActivitiesByUserForUpdate(ctx, actor.UserID)
		if err != nil {
			return err
		}
		candidates := append([]*model.Activity{target}, lo.Reject(running, func(a *model.Activity, _ int) bool {
			return a.ActivityID == target.ActivityID
		})...)

		t, err = session.Start(actor.UserID, actor.OrganizationID, candidates, activityID, s.Clock.Now())
		if err != nil {
			return err
		}

		for _, c := range t.Closed {
			if err := s.Repo.UpdateActivity(ctx, c, "end_time"); err != nil {
				return err
			}
		}
		return s.Repo.UpdateActivity(ctx, t.Started, "user_id", "start_time", "end_time")
	})
	if err != nil {
		return nil, s.mapSessionErr(err)
	}

	observability.SessionTransitions.WithLabelValues(SessionEventStarted).Inc()
	s.publishClosed(ctx, t.Closed)

	events := []*SessionEvent{}
	if t.Claimed {
		events = append(events, newSessionEvent(SessionEventClaimed, t.Started, actor.UserID, *t.Started.StartTime))
	}
	events = append(events, newSessionEvent(SessionEventStarted, t.Started, actor.UserID, *t.Started.StartTime))
	s.Events.Publish(ctx, events...)

	log.Info().
		Str("evt.name", "session.started").
		Str("activityId", t.Started.ActivityID).
		Str("userId", actor.UserID).
		Int("closed", len(t.Closed)).
		Msg("activity session started")

	return t, nil
}

// StopActivity stops the actor's running activity. What happens when it is not
// running depends on StopMode.
func (s *Activity) StopActivity(ctx context.Context, actor *policy.Actor, activityID string) (*model.Activity, error) {
	unlock, err := s.Locker.Lock(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		stopped *model.Activity
		changed bool
	)
	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		target, err := s.Repo.GetActivityByIDForUpdate(ctx, activityID)
		if err != nil {
			return err
		}
		stopped, changed, err = session.Stop(actor.UserID, target, s.Clock.Now(), s.StopMode)
		if err != nil || !changed {
			return err
		}
		return s.Repo.UpdateActivity(ctx, stopped, "end_time")
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishClosed(ctx, []*model.Activity{stopped})
	}
	return stopped, nil
}

func (s *Activity) publishClosed(ctx context.Context, closed []*model.Activity) {
	events := make([]*SessionEvent, 0, len(closed))
	for _, c := range closed {
		observability.SessionTransitions.WithLabelValues(SessionEventStopped).Inc()
		observability.SessionDuration.Observe(session.Duration(c).Seconds())
		events = append(events, newSessionEvent(SessionEventStopped, c, lo.FromPtr(c.UserID), *c.EndTime))
	}
	s.Events.Publish(ctx, events...)
}

// GetActiveSession returns the running activity of the actor with its elapsed time.
func (s *Activity) GetActiveSession(ctx context.Context, actor *policy.Actor) (*types.ActiveActivityResponse, error) {
	now := s.Clock.Now()
	resp := &types.ActiveActivityResponse{ServerTime: now.UnixMilli()}

	activity, err := s.Repo.GetActiveActivityByUser(ctx, actor.UserID)
	if errors.Is(err, acterr.ErrNotFound) {
		return resp, nil
	} else if err != nil {
		return nil, err
	}

	elapsed := session.Elapsed(activity, now)
	resp.Activity = activity
	resp.Elapsed = session.FormatElapsed(elapsed)
	resp.ElapsedSeconds = int64(elapsed.Seconds())
	return resp, nil
}

// GetHistory returns the completed activities of the actor, most recently ended first.
func (s *Activity) GetHistory(ctx context.Context, actor *policy.Actor) ([]*types.HistoryEntry, error) {
	activities, err := s.Repo.GetCompletedActivitiesByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return lo.Map(activities, func(a *model.Activity, _ int) *types.HistoryEntry {
		d := session.Duration(a)
		return &types.HistoryEntry{
			Activity:        a,
			Duration:        session.FormatElapsed(d),
			DurationSeconds: int64(d.Seconds()),
		}
	}), nil
}

func (s *Activity) mapSessionErr(err error) error {
	if constraint, ok := s.UniqueViolation(err); ok && constraint == repo.ActiveIndexName {
		return ErrAlreadyRunning
	}
	return err
}
