package v1

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/middlewares"
	"actiapp.dev/backend/internal/server/svr"
	"actiapp.dev/backend/internal/service"
	"actiapp.dev/backend/internal/util/rekuest"
)

type Organization struct {
	fx.In

	OrganizationService *service.Organization
	Middlewares         *svr.Middlewares
}

func RegisterOrganization(v1 *svr.V1, c Organization) {
	admin := []fiber.Handler{c.Middlewares.RequireAuth, middlewares.RequireRole(constant.RoleAdminGeneral)}
	byID := middlewares.ValidateIDParam("organizationId")

	v1.Get("/org", c.GetOrganizations)
	v1.Get("/org/:organizationId", c.Middlewares.RequireAuth, byID, c.GetOrganizationByID)
	v1.Post("/org", append(admin, c.CreateOrganization)...)
	v1.Patch("/org/:organizationId", append(admin, byID, c.UpdateOrganization)...)
	v1.Delete("/org/:organizationId", append(admin, byID, c.DeleteOrganization)...)
}

func (c *Organization) GetOrganizations(ctx *fiber.Ctx) error {
	orgs, err := c.OrganizationService.GetOrganizations(ctx.UserContext())
	if err != nil {
		return err
	}

	return ctx.JSON(orgs)
}

func (c *Organization) GetOrganizationByID(ctx *fiber.Ctx) error {
	org, err := c.OrganizationService.GetOrganizationByID(ctx.UserContext(), ctx.Params("organizationId"))
	if err != nil {
		return err
	}

	return ctx.JSON(org)
}

func (c *Organization) CreateOrganization(ctx *fiber.Ctx) error {
	var req types.OrganizationRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	org, err := c.OrganizationService.CreateOrganization(ctx.UserContext(), middlewares.Actor(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(org)
}

func (c *Organization) UpdateOrganization(ctx *fiber.Ctx) error {
	var req types.OrganizationRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	org, err := c.OrganizationService.UpdateOrganization(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("organizationId"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(org)
}

func (c *Organization) DeleteOrganization(ctx *fiber.Ctx) error {
	if err := c.OrganizationService.DeleteOrganization(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("organizationId")); err != nil {
		return err
	}

	return ctx.JSON(types.MessageResponse{Message: "organization deleted"})
}
