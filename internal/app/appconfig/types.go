package appconfig

import (
	"fmt"

	"github.com/samber/lo"

	"actiapp.dev/backend/internal/constant"
)

func (c *ConfigSpec) validate() error {
	if !lo.Contains([]string{constant.StopModeReject, constant.StopModeNoop}, c.SessionStopMode) {
		return fmt.Errorf("invalid session stop mode %q: expect one of reject, noop", c.SessionStopMode)
	}

	visibilities := []string{constant.VisibilityOwnOnly, constant.VisibilityOwnPlusOrgUnclaimed, constant.VisibilityWholeOrg}
	if !lo.Contains(visibilities, c.UserActivityVisibility) {
		return fmt.Errorf("invalid user activity visibility %q: expect one of %v", c.UserActivityVisibility, visibilities)
	}

	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("jwt secret must be at least 16 characters long")
	}

	return nil
}
