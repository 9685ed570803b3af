package constant

import "time"

const (
	// AuthorizationRealm is the prefix of the value in the `Authorization` header.
	AuthorizationRealm = "Bearer"

	// TokenTTL is the lifetime of a credential issued by the login endpoint.
	TokenTTL = time.Hour

	// PasswordMinLength is enforced on registration and organization admin creation.
	PasswordMinLength = 6
)

const (
	RoleAdminGeneral = "admin_general"
	RoleAdminOrg     = "admin_org"
	RoleUser         = "user"
)

// Roles is the canonical role taxonomy. Legacy aliases such as `admin` or `orgAdmin` are not accepted.
var Roles = []string{
	RoleAdminGeneral,
	RoleAdminOrg,
	RoleUser,
}
