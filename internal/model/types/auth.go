package types

import "actiapp.dev/backend/internal/model"

type RegisterRequest struct {
	Username       string  `json:"username" validate:"required,max=64,printascii,excludes= "`
	FirstName      string  `json:"firstName" validate:"required,max=128"`
	MiddleName     *string `json:"middleName" validate:"omitempty,max=128"`
	LastName       string  `json:"lastName" validate:"required,max=128"`
	SecondLastName *string `json:"secondLastName" validate:"omitempty,max=128"`
	Email          string  `json:"email" validate:"required,email,max=254"`
	Password       string  `json:"password" validate:"required,min=6,max=72"`
	// Role defaults to `user` when omitted.
	Role           string  `json:"role" validate:"omitempty,role"`
	OrganizationID *string `json:"organizationId" validate:"omitempty,ulid"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      *model.User `json:"user"`
}

type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,max=128"`
	Type string `json:"type" validate:"required,max=64"`

	AdminUsername       string  `json:"adminUsername" validate:"required,max=64,printascii,excludes= "`
	AdminFirstName      string  `json:"adminFirstName" validate:"required,max=128"`
	AdminMiddleName     *string `json:"adminMiddleName" validate:"omitempty,max=128"`
	AdminLastName       string  `json:"adminLastName" validate:"required,max=128"`
	AdminSecondLastName *string `json:"adminSecondLastName" validate:"omitempty,max=128"`
	AdminEmail          string  `json:"adminEmail" validate:"required,email,max=254"`
	AdminPassword       string  `json:"adminPassword" validate:"required,min=6,max=72"`
}

type CreateOrganizationResponse struct {
	Organization *model.Organization `json:"organization"`
	Admin        *model.User         `json:"admin"`
}
