package constant

import "time"

const (
	// SlimHeaderKey is to indicate whether the current request shall be ignored by Sentry transaction tracing.
	// This is typically used by probes to avoid useless data being sent to Sentry.
	SlimHeaderKey = "X-Slim"

	SessionLockKeyPrefix = "mutex:session:"

	SessionEventStream  = "actiapp-sessions"
	SessionEventSubject = "SESSION"

	UserCacheTTL = time.Hour
)

// Session stop modes. See appconfig.ConfigSpec#SessionStopMode.
const (
	StopModeReject = "reject"
	StopModeNoop   = "noop"
)

// Activity visibility for plain users. See appconfig.ConfigSpec#UserActivityVisibility.
const (
	VisibilityOwnOnly             = "own_only"
	VisibilityOwnPlusOrgUnclaimed = "own_plus_org_unclaimed"
	VisibilityWholeOrg            = "whole_org"
)
