package types

type OrganizationRequest struct {
	Name        string  `json:"name" validate:"required,max=128"`
	Type        string  `json:"type" validate:"required,max=64"`
	Description *string `json:"description" validate:"omitempty,max=2048"`
	Address     *string `json:"address" validate:"omitempty,max=512"`
	Phone       *string `json:"phone" validate:"omitempty,max=64"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Website     *string `json:"website" validate:"omitempty,url"`
}
