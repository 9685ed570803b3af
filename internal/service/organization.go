package service

import (
	"context"

	"github.com/jinzhu/copier"
	"github.com/jonboulle/clockwork"

	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/actid"
	"actiapp.dev/backend/internal/repo"
	"actiapp.dev/backend/internal/repo/txn"
)

var ErrOrganizationNameTaken = acterr.ErrConflict.Status(400).Msg("organization name already in use")

type Organization struct {
	Repo   OrganizationRepo
	Users  UserRepo
	User   *User
	Tx     Transactor
	Policy *policy.Policy
	Clock  clockwork.Clock
}

func NewOrganization(orgRepo *repo.Organization, userRepo *repo.User, userService *User, tx *txn.Transactor, pol *policy.Policy, clock clockwork.Clock) *Organization {
	return &Organization{
		Repo:   orgRepo,
		Users:  userRepo,
		User:   userService,
		Tx:     tx,
		Policy: pol,
		Clock:  clock,
	}
}

func (s *Organization) GetOrganizations(ctx context.Context) ([]*model.Organization, error) {
	return s.Repo.GetOrganizations(ctx)
}

func (s *Organization) GetOrganizationByID(ctx context.Context, orgID string) (*model.Organization, error) {
	return s.Repo.GetOrganizationByID(ctx, orgID)
}

func (s *Organization) CreateOrganization(ctx context.Context, actor *policy.Actor, req *types.OrganizationRequest) (*model.Organization, error) {
	if err := s.Policy.CanManageOrganizations(actor); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	org := &model.Organization{
		OrganizationID: actid.NewAt(now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := copier.Copy(org, req); err != nil {
		return nil, err
	}

	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		return createOrganization(ctx, s.Repo, org)
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Organization) UpdateOrganization(ctx context.Context, actor *policy.Actor, orgID string, req *types.OrganizationRequest) (*model.Organization, error) {
	if err := s.Policy.CanManageOrganizations(actor); err != nil {
		return nil, err
	}

	var org *model.Organization
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		org, err = s.Repo.GetOrganizationByID(ctx, orgID)
		if err != nil {
			return err
		}

		taken, err := s.Repo.IsNameTaken(ctx, req.Name, orgID)
		if err != nil {
			return err
		}
		if taken {
			return ErrOrganizationNameTaken
		}

		if err := copier.CopyWithOption(org, req, copier.Option{IgnoreEmpty: true}); err != nil {
			return err
		}
		org.UpdatedAt = s.Clock.Now()
		return s.Repo.UpdateOrganization(ctx, org)
	})
	if err != nil {
		return nil, mapOrganizationErr(err)
	}
	return org, nil
}

// DeleteOrganization removes the organization. Its members and activities are
// detached by the foreign keys, so their cached profiles are dropped.
func (s *Organization) DeleteOrganization(ctx context.Context, actor *policy.Actor, orgID string) error {
	if err := s.Policy.CanManageOrganizations(actor); err != nil {
		return err
	}

	var members []string
	err := s.Tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		members, err = s.Users.GetUserIDsByOrganization(ctx, orgID)
		if err != nil {
			return err
		}
		return s.Repo.DeleteOrganization(ctx, orgID)
	})
	if err != nil {
		return err
	}

	s.User.Forget(ctx, members...)
	return nil
}

func createOrganization(ctx context.Context, orgs OrganizationRepo, org *model.Organization) error {
	taken, err := orgs.IsNameTaken(ctx, org.Name, "")
	if err != nil {
		return err
	}
	if taken {
		return ErrOrganizationNameTaken
	}
	return mapOrganizationErr(orgs.CreateOrganization(ctx, org))
}

func mapOrganizationErr(err error) error {
	if _, ok := txn.UniqueViolation(err); ok {
		return ErrOrganizationNameTaken
	}
	return err
}
