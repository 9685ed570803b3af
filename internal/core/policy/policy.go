// Package policy decides who may see and change activities and organizations.
// Every role comparison in the service lives here.
package policy

import (
	"github.com/samber/lo"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID         string
	Role           string
	OrganizationID string
}

func ActorOf(u *model.User) *Actor {
	return &Actor{
		UserID:         u.UserID,
		Role:           u.Role,
		OrganizationID: u.OrgID(),
	}
}

func (a *Actor) IsAdminGeneral() bool {
	return a != nil && a.Role == constant.RoleAdminGeneral
}

func (a *Actor) IsAdminOrg() bool {
	return a != nil && a.Role == constant.RoleAdminOrg
}

func (a *Actor) IsAdmin() bool {
	return a.IsAdminGeneral() || a.IsAdminOrg()
}

type ScopeKind int

const (
	// ScopeAll covers every activity.
	ScopeAll ScopeKind = iota
	// ScopeOrganization covers every activity of one organization.
	ScopeOrganization
	// ScopeOwn covers the activities of one user.
	ScopeOwn
	// ScopeOwnPlusOrgUnclaimed covers the activities of one user and the unclaimed ones of their organization.
	ScopeOwnPlusOrgUnclaimed
)

// Scope is the set of activities a caller may list.
type Scope struct {
	Kind           ScopeKind
	UserID         string
	OrganizationID string
}

// Includes reports whether a falls within s.
func (s Scope) Includes(a *model.Activity) bool {
	switch s.Kind {
	case ScopeAll:
		return true
	case ScopeOrganization:
		return a.InOrganization(s.OrganizationID)
	case ScopeOwn:
		return a.OwnedBy(s.UserID)
	case ScopeOwnPlusOrgUnclaimed:
		return a.OwnedBy(s.UserID) || (a.Unclaimed() && a.InOrganization(s.OrganizationID))
	}
	return false
}

type Policy struct {
	visibility string
}

func New(visibility string) *Policy {
	if !lo.Contains([]string{constant.VisibilityOwnOnly, constant.VisibilityOwnPlusOrgUnclaimed, constant.VisibilityWholeOrg}, visibility) {
		visibility = constant.VisibilityOwnPlusOrgUnclaimed
	}
	return &Policy{visibility: visibility}
}

// ListScope returns the activities actor may list and read.
func (p *Policy) ListScope(actor *Actor) Scope {
	own := Scope{Kind: ScopeOwn, UserID: actor.UserID}

	if actor.IsAdmin() {
		if actor.OrganizationID != "" {
			return Scope{Kind: ScopeOrganization, OrganizationID: actor.OrganizationID}
		}
		if actor.IsAdminGeneral() {
			return Scope{Kind: ScopeAll}
		}
		return own
	}

	if actor.OrganizationID == "" {
		return own
	}

	switch p.visibility {
	case constant.VisibilityWholeOrg:
		return Scope{Kind: ScopeOrganization, OrganizationID: actor.OrganizationID}
	case constant.VisibilityOwnPlusOrgUnclaimed:
		return Scope{Kind: ScopeOwnPlusOrgUnclaimed, UserID: actor.UserID, OrganizationID: actor.OrganizationID}
	default:
		return own
	}
}

// CanRead allows reading a single activity when it is within the caller's list scope.
func (p *Policy) CanRead(actor *Actor, a *model.Activity) error {
	if p.ListScope(actor).Includes(a) {
		return nil
	}
	return acterr.ErrForbidden.Msg("you do not have access to this activity")
}

// CanTargetOrganization allows stamping an activity with orgID only when it is
// the actor's own organization.
func (p *Policy) CanTargetOrganization(actor *Actor, orgID string) error {
	if orgID != actor.OrganizationID {
		return acterr.ErrForbidden.Msg("activities can only be created in your own organization")
	}
	return nil
}

// CanCreate allows anyone to create activities for themselves. Organization-wide
// activities need an admin with an organization.
func (p *Policy) CanCreate(actor *Actor, orgWide bool) error {
	if !orgWide {
		return nil
	}
	if !actor.IsAdmin() {
		return acterr.ErrForbidden.Msg("only organization admins can create organization activities")
	}
	if actor.OrganizationID == "" {
		return acterr.ErrForbidden.Msg("organization activities need an organization")
	}
	return nil
}

// CanModify allows updates and deletes by the owner, by an admin_org within the
// activity's organization, and by any admin_general.
func (p *Policy) CanModify(actor *Actor, a *model.Activity) error {
	switch {
	case a.OwnedBy(actor.UserID):
		return nil
	case actor.IsAdminGeneral():
		return nil
	case actor.IsAdminOrg() && a.InOrganization(actor.OrganizationID):
		return nil
	}
	return acterr.ErrForbidden.Msg("you can only modify your own activities")
}

// CanStart allows starting an owned activity or claiming an unclaimed one of the
// caller's organization.
func (p *Policy) CanStart(actor *Actor, a *model.Activity) error {
	if a.OwnedBy(actor.UserID) || (a.Unclaimed() && a.InOrganization(actor.OrganizationID)) {
		return nil
	}
	return acterr.ErrForbidden.Msg("activity belongs to another user")
}

// CanManageOrganizations allows creating, updating and deleting organizations.
func (p *Policy) CanManageOrganizations(actor *Actor) error {
	if actor.IsAdminGeneral() {
		return nil
	}
	return acterr.ErrForbidden.Msg("only general admins can manage organizations")
}

// CanAssignRole decides whether actor, nil for anonymous callers, may register
// an account with role.
func (p *Policy) CanAssignRole(actor *Actor, role string) error {
	if role == constant.RoleUser {
		return nil
	}
	if actor == nil {
		return acterr.ErrForbidden.Msg("registering an account with role %s requires a general admin", role)
	}
	return p.CanManageOrganizations(actor)
}
