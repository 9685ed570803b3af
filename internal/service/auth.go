package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/actid"
	"actiapp.dev/backend/internal/pkg/crypto"
	"actiapp.dev/backend/internal/pkg/observability"
	"actiapp.dev/backend/internal/pkg/token"
	"actiapp.dev/backend/internal/repo"
	"actiapp.dev/backend/internal/repo/txn"
)

var (
	// ErrRegistrationConflict is the 400 answered when a username or email is reused.
	ErrRegistrationConflict = acterr.ErrConflict.Status(400).Msg("username or email already in use")

	ErrInvalidCredentials = acterr.ErrUnauthorized.Msg("invalid credentials")
)

type Auth struct {
	Users  UserRepo
	Orgs   OrganizationRepo
	Tx     Transactor
	Hasher PasswordHasher
	Tokens TokenIssuer
	Policy *policy.Policy
	Clock  clockwork.Clock
}

func NewAuth(userRepo *repo.User, orgRepo *repo.Organization, tx *txn.Transactor, hasher *crypto.PasswordHasher, issuer *token.Issuer, pol *policy.Policy, clock clockwork.Clock) *Auth {
	return &Auth{
		Users:  userRepo,
		Orgs:   orgRepo,
		Tx:     tx,
		Hasher: hasher,
		Tokens: issuer,
		Policy: pol,
		Clock:  clock,
	}
}

// Register creates an account. actor is nil for anonymous registrations, which
// may only create plain users.
func (s *Auth) Register(ctx context.Context, actor *policy.Actor, req *types.RegisterRequest) (*model.User, error) {
	role := lo.Ternary(req.Role == "", constant.RoleUser, req.Role)
	if err := s.Policy.CanAssignRole(actor, role); err != nil {
		return nil, err
	}
	if role == constant.RoleAdminOrg && req.OrganizationID == nil {
		return nil, acterr.ErrInvalidReq.Msg("an admin_org account needs an organizationId")
	}

	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	user := &model.User{
		UserID:         actid.NewAt(now),
		Username:       req.Username,
		Email:          strings.ToLower(req.Email),
		FirstName:      req.FirstName,
		MiddleName:     req.MiddleName,
		LastName:       req.LastName,
		SecondLastName: req.SecondLastName,
		Password:       hash,
		Role:           role,
		OrganizationID: req.OrganizationID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if user.OrganizationID != nil {
			if _, err := s.Orgs.GetOrganizationByID(ctx, *user.OrganizationID); err != nil {
				if errors.Is(err, acterr.ErrNotFound) {
					return acterr.ErrInvalidReq.Msg("organization %s does not exist", *user.OrganizationID)
				}
				return err
			}
		}
		return s.createUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("evt.name", "auth.registered").
		Str("userId", user.UserID).
		Str("role", user.Role).
		Msg("user registered")

	return user, nil
}

func (s *Auth) createUser(ctx context.Context, user *model.User) error {
	taken, err := s.Users.IsUsernameOrEmailTaken(ctx, user.Username, user.Email)
	if err != nil {
		return err
	}
	if taken {
		return ErrRegistrationConflict
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if _, ok := txn.UniqueViolation(err); ok {
			return ErrRegistrationConflict
		}
		return err
	}
	return nil
}

// Login answers the same error for unknown usernames and wrong passwords.
func (s *Auth) Login(ctx context.Context, req *types.LoginRequest) (*types.LoginResponse, error) {
	user, err := s.Users.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, acterr.ErrNotFound) {
		observability.AuthAttempts.WithLabelValues("rejected").Inc()
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}

	if err := s.Hasher.Compare(user.Password, req.Password); err != nil {
		if errors.Is(err, crypto.ErrMismatchedPassword) {
			observability.AuthAttempts.WithLabelValues("rejected").Inc()
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	signed, exp, err := s.Tokens.Issue(user.UserID, user.Role)
	if err != nil {
		return nil, err
	}
	observability.AuthAttempts.WithLabelValues("accepted").Inc()

	return &types.LoginResponse{
		Token:     signed,
		ExpiresAt: exp.UnixMilli(),
		User:      user,
	}, nil
}

// CreateOrganization creates an organization together with its first admin_org
// account. Either both are stored or neither is.
func (s *Auth) CreateOrganization(ctx context.Context, actor *policy.Actor, req *types.CreateOrganizationRequest) (*types.CreateOrganizationResponse, error) {
	if err := s.Policy.CanManageOrganizations(actor); err != nil {
		return nil, err
	}

	hash, err := s.Hasher.Hash(req.AdminPassword)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	org := &model.Organization{
		OrganizationID: actid.NewAt(now),
		Name:           req.Name,
		Type:           req.Type,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	admin := &model.User{
		UserID:         actid.NewAt(now),
		Username:       req.AdminUsername,
		Email:          strings.ToLower(req.AdminEmail),
		FirstName:      req.AdminFirstName,
		MiddleName:     req.AdminMiddleName,
		LastName:       req.AdminLastName,
		SecondLastName: req.AdminSecondLastName,
		Password:       hash,
		Role:           constant.RoleAdminOrg,
		OrganizationID: lo.ToPtr(org.OrganizationID),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := createOrganization(ctx, s.Orgs, org); err != nil {
			return err
		}
		return s.createUser(ctx, admin)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("evt.name", "auth.organization_created").
		Str("organizationId", org.OrganizationID).
		Str("adminId", admin.UserID).
		Msg("organization created with admin")

	return &types.CreateOrganizationResponse{
		Organization: org,
		Admin:        admin,
	}, nil
}
