package v1

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/cachectrl"
	"actiapp.dev/backend/internal/pkg/middlewares"
	"actiapp.dev/backend/internal/server/svr"
	"actiapp.dev/backend/internal/service"
	"actiapp.dev/backend/internal/util/rekuest"
)

type Auth struct {
	fx.In

	AuthService *service.Auth
	UserService *service.User
	Middlewares *svr.Middlewares
}

func RegisterAuth(v1 *svr.V1, c Auth) {
	v1.Post("/auth/register", c.Middlewares.OptionalAuth, c.Register)
	v1.Post("/auth/login", c.Middlewares.LoginLimiter, c.Login)
	v1.Get("/auth/me", c.Middlewares.RequireAuth, c.Me)
	v1.Post("/auth/create-organization", c.Middlewares.RequireAuth, middlewares.RequireRole(constant.RoleAdminGeneral), c.CreateOrganization)
}

// Register creates an account. Anonymous callers may only register plain users;
// an authenticated admin may assign the roles its own role permits.
func (c *Auth) Register(ctx *fiber.Ctx) error {
	var req types.RegisterRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	user, err := c.AuthService.Register(ctx.UserContext(), middlewares.Actor(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(user)
}

func (c *Auth) Login(ctx *fiber.Ctx) error {
	cachectrl.OptOut(ctx)
	var req types.LoginRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	resp, err := c.AuthService.Login(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(resp)
}

func (c *Auth) Me(ctx *fiber.Ctx) error {
	cachectrl.OptOut(ctx)
	user, err := c.UserService.GetUserByID(ctx.UserContext(), middlewares.Actor(ctx).UserID)
	if err != nil {
		return err
	}

	return ctx.JSON(user)
}

func (c *Auth) CreateOrganization(ctx *fiber.Ctx) error {
	var req types.CreateOrganizationRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	resp, err := c.AuthService.CreateOrganization(ctx.UserContext(), middlewares.Actor(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(resp)
}
