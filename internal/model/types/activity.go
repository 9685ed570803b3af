package types

import (
	"gopkg.in/guregu/null.v3"

	"actiapp.dev/backend/internal/model"
)

type CreateActivityRequest struct {
	Title       string `json:"title" validate:"required,notblank,max=256"`
	Category    string `json:"category" validate:"required,notblank,max=128"`
	Subcategory string `json:"subcategory" validate:"required,notblank,max=128"`
	// Organization, when sent, must be the creator's own organization.
	Organization *string `json:"organization" validate:"omitempty,max=64,printascii"`
	// OrgWide creates the activity for the whole organization, unclaimed by any user.
	OrgWide bool `json:"orgWide"`
}

// UpdateActivityRequest carries the fields of a PATCH. Absent fields are left
// untouched; an explicit null clears a time.
type UpdateActivityRequest struct {
	Title       null.String `json:"title"`
	Category    null.String `json:"category"`
	Subcategory null.String `json:"subcategory"`
	StartTime   null.Time   `json:"startTime"`
	EndTime     null.Time   `json:"endTime"`

	// Presence markers, populated from the raw body by the controller.
	HasStartTime bool `json:"-"`
	HasEndTime   bool `json:"-"`
}

type StartActivityResponse struct {
	Started *model.Activity `json:"started"`
	Closed  *model.Activity `json:"closed,omitempty"`
}

type ActiveActivityResponse struct {
	Activity       *model.Activity `json:"activity"`
	Elapsed        string          `json:"elapsed,omitempty"`
	ElapsedSeconds int64           `json:"elapsedSeconds"`
	ServerTime     int64           `json:"serverTime"`
}

type HistoryEntry struct {
	*model.Activity
	Duration        string `json:"duration"`
	DurationSeconds int64  `json:"durationSeconds"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
