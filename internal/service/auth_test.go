package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/service"
	"actiapp.dev/backend/internal/service/servicetest"
)

var general = &policy.Actor{UserID: "u-general", Role: constant.RoleAdminGeneral}

func registerRequest(username, email string) *types.RegisterRequest {
	return &types.RegisterRequest{
		Username:  username,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Password:  "secret1",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	user, err := f.Auth.Register(ctx, nil, registerRequest("ada", "Ada@Example.com"))
	require.NoError(t, err)
	assert.Equal(t, constant.RoleUser, user.Role)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.Password)

	resp, err := f.Auth.Login(ctx, &types.LoginRequest{Username: "ada", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.UserID, resp.User.UserID)
	assert.Equal(t, servicetest.T0.Add(constant.TokenTTL).UnixMilli(), resp.ExpiresAt)

	claims, err := f.Issuer.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.UserID, claims.Subject)
	assert.Equal(t, constant.RoleUser, claims.Role)
}

func TestRegisterConflictCreatesNothing(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	_, err := f.Auth.Register(ctx, nil, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)

	for _, req := range []*types.RegisterRequest{
		registerRequest("ada", "other@example.com"),
		registerRequest("other", "ada@example.com"),
	} {
		_, err = f.Auth.Register(ctx, nil, req)
		var actiErr *acterr.ActiError
		require.True(t, errors.As(err, &actiErr))
		assert.Equal(t, 400, actiErr.StatusCode)
		assert.Equal(t, acterr.CodeConflict, actiErr.ErrorCode)
		assert.Contains(t, actiErr.Message, "already in use")
	}
	assert.Equal(t, 1, f.Store.UserCount())
}

func TestRegisterRoles(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	req := registerRequest("boss", "boss@example.com")
	req.Role = constant.RoleAdminGeneral
	_, err := f.Auth.Register(ctx, nil, req)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))

	user, err := f.Auth.Register(ctx, general, req)
	require.NoError(t, err)
	assert.Equal(t, constant.RoleAdminGeneral, user.Role)

	req = registerRequest("orgboss", "orgboss@example.com")
	req.Role = constant.RoleAdminOrg
	_, err = f.Auth.Register(ctx, general, req)
	assert.True(t, errors.Is(err, acterr.ErrInvalidReq))

	req.OrganizationID = lo.ToPtr("01HMISSINGORG000000000000")
	_, err = f.Auth.Register(ctx, general, req)
	assert.True(t, errors.Is(err, acterr.ErrInvalidReq))
	assert.Equal(t, 1, f.Store.UserCount())
}

func TestLoginFailuresLookAlike(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	_, err := f.Auth.Register(ctx, nil, registerRequest("ada", "ada@example.com"))
	require.NoError(t, err)

	_, wrongPassword := f.Auth.Login(ctx, &types.LoginRequest{Username: "ada", Password: "nope"})
	_, unknownUser := f.Auth.Login(ctx, &types.LoginRequest{Username: "nobody", Password: "secret1"})

	assert.Equal(t, service.ErrInvalidCredentials, wrongPassword)
	assert.Equal(t, service.ErrInvalidCredentials, unknownUser)
	assert.Equal(t, 401, service.ErrInvalidCredentials.StatusCode)
}

func TestCreateOrganizationIsAtomic(t *testing.T) {
	f := servicetest.NewFixture(constant.VisibilityOwnOnly, constant.StopModeReject)
	ctx := context.Background()

	_, err := f.Auth.Register(ctx, nil, registerRequest("taken", "taken@example.com"))
	require.NoError(t, err)

	req := &types.CreateOrganizationRequest{
		Name:           "Acme",
		Type:           "company",
		AdminUsername:  "taken",
		AdminFirstName: "Wile",
		AdminLastName:  "Coyote",
		AdminEmail:     "wile@example.com",
		AdminPassword:  "secret1",
	}

	_, err = f.Auth.CreateOrganization(ctx, alice, req)
	assert.True(t, errors.Is(err, acterr.ErrForbidden))

	_, err = f.Auth.CreateOrganization(ctx, general, req)
	assert.Equal(t, service.ErrRegistrationConflict, err)
	assert.Zero(t, f.Store.OrganizationCount())

	req.AdminUsername = "wile"
	resp, err := f.Auth.CreateOrganization(ctx, general, req)
	require.NoError(t, err)
	assert.Equal(t, constant.RoleAdminOrg, resp.Admin.Role)
	assert.Equal(t, resp.Organization.OrganizationID, resp.Admin.OrgID())
	assert.Equal(t, 1, f.Store.OrganizationCount())

	req.AdminUsername = "another"
	req.AdminEmail = "another@example.com"
	_, err = f.Auth.CreateOrganization(ctx, general, req)
	assert.Equal(t, service.ErrOrganizationNameTaken, err)
	assert.Equal(t, 2, f.Store.UserCount())
}
