package session

import (
	"fmt"
	"time"

	"actiapp.dev/backend/internal/model"
)

// Elapsed returns how long a has been running at now. It is zero for
// activities that are not running and never negative.
func Elapsed(a *model.Activity, now time.Time) time.Duration {
	if a == nil || !a.Active() {
		return 0
	}
	d := now.Sub(*a.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// Duration returns the length of a completed activity.
func Duration(a *model.Activity) time.Duration {
	if a == nil || !a.Completed() {
		return 0
	}
	d := a.EndTime.Sub(*a.StartTime)
	if d < 0 {
		return 0
	}
	return d
}

// FormatElapsed renders d as HH:MM:SS using whole seconds. Hours are not
// capped at 99.
func FormatElapsed(d time.Duration) string {
	total := int64(d / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
