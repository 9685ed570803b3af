package model

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	UserID         string    `bun:"user_id,pk" json:"id"`
	Username       string    `bun:",unique,notnull" json:"username"`
	Email          string    `bun:",unique,notnull" json:"email"`
	FirstName      string    `bun:",notnull" json:"firstName"`
	MiddleName     *string   `json:"middleName,omitempty"`
	LastName       string    `bun:",notnull" json:"lastName"`
	SecondLastName *string   `json:"secondLastName,omitempty"`
	Password       string    `bun:",notnull" json:"-" msgpack:"-"`
	Role           string    `bun:",notnull" json:"role"`
	OrganizationID *string   `json:"organizationId"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// OrgID returns the organization id, or an empty string for users without one.
func (u *User) OrgID() string {
	if u.OrganizationID == nil {
		return ""
	}
	return *u.OrganizationID
}
