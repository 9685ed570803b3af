package model

import (
	"time"

	"github.com/uptrace/bun"
)

type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:a"`

	ActivityID  string `bun:"activity_id,pk" json:"id"`
	Title       string `bun:",notnull" json:"title"`
	Category    string `bun:",notnull" json:"category"`
	Subcategory string `bun:",notnull" json:"subcategory"`
	// UserID is nil for activities created for the whole organization and not yet claimed.
	UserID         *string    `json:"userId"`
	OrganizationID *string    `json:"organizationId"`
	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	CreatedAt      time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time  `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

func (a *Activity) OwnedBy(userID string) bool {
	return a.UserID != nil && *a.UserID == userID
}

func (a *Activity) Unclaimed() bool {
	return a.UserID == nil
}

func (a *Activity) InOrganization(orgID string) bool {
	return orgID != "" && a.OrganizationID != nil && *a.OrganizationID == orgID
}

// Active reports whether the activity has been started and not yet stopped.
func (a *Activity) Active() bool {
	return a.StartTime != nil && a.EndTime == nil
}

func (a *Activity) Completed() bool {
	return a.StartTime != nil && a.EndTime != nil
}
