package v1

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"gopkg.in/guregu/null.v3"

	"actiapp.dev/backend/internal/model/types"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/cachectrl"
	"actiapp.dev/backend/internal/pkg/middlewares"
	"actiapp.dev/backend/internal/server/svr"
	"actiapp.dev/backend/internal/service"
	"actiapp.dev/backend/internal/util/rekuest"
)

type Activity struct {
	fx.In

	ActivityService *service.Activity
	Middlewares     *svr.Middlewares
}

func RegisterActivity(v1 *svr.V1, c Activity) {
	activities := v1.Group("/activities", c.Middlewares.RequireAuth, cachectrl.NoStore())

	activities.Post("/", c.Middlewares.Idempotency, c.CreateActivity)
	activities.Get("/", c.GetActivities)
	activities.Get("/active", c.GetActiveSession)
	activities.Get("/history", c.GetHistory)

	byID := middlewares.ValidateIDParam("activityId")
	activities.Get("/:activityId", byID, c.GetActivityByID)
	activities.Patch("/:activityId", byID, c.UpdateActivity)
	activities.Delete("/:activityId", byID, c.DeleteActivity)
	activities.Post("/:activityId/start", byID, c.StartActivity)
	activities.Post("/:activityId/stop", byID, c.StopActivity)
}

func (c *Activity) CreateActivity(ctx *fiber.Ctx) error {
	var req types.CreateActivityRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}

	activity, err := c.ActivityService.CreateActivity(ctx.UserContext(), middlewares.Actor(ctx), &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(activity)
}

func (c *Activity) GetActivities(ctx *fiber.Ctx) error {
	activities, err := c.ActivityService.GetActivities(ctx.UserContext(), middlewares.Actor(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(activities)
}

func (c *Activity) GetActiveSession(ctx *fiber.Ctx) error {
	resp, err := c.ActivityService.GetActiveSession(ctx.UserContext(), middlewares.Actor(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(resp)
}

func (c *Activity) GetHistory(ctx *fiber.Ctx) error {
	history, err := c.ActivityService.GetHistory(ctx.UserContext(), middlewares.Actor(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(history)
}

func (c *Activity) GetActivityByID(ctx *fiber.Ctx) error {
	activity, err := c.ActivityService.GetActivityByID(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("activityId"))
	if err != nil {
		return err
	}

	return ctx.JSON(activity)
}

// UpdateActivity applies a PATCH. Fields absent from the body are left as they
// are, while an explicit null clears startTime or endTime.
func (c *Activity) UpdateActivity(ctx *fiber.Ctx) error {
	body := ctx.Body()
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return acterr.ErrInvalidReq.Msg("invalid request: body must be a JSON object")
	}

	var req types.UpdateActivityRequest
	if err := rekuest.ValidBody(ctx, &req); err != nil {
		return err
	}
	if err := rejectBlank(
		textField{"title", req.Title},
		textField{"category", req.Category},
		textField{"subcategory", req.Subcategory},
	); err != nil {
		return err
	}
	req.HasStartTime = gjson.GetBytes(body, "startTime").Exists()
	req.HasEndTime = gjson.GetBytes(body, "endTime").Exists()

	activity, err := c.ActivityService.UpdateActivity(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("activityId"), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(activity)
}

type textField struct {
	name  string
	value null.String
}

// rejectBlank reports sent text fields that are empty or whitespace, in the
// order given.
func rejectBlank(fields ...textField) error {
	var violations []*rekuest.ErrorResponse
	for _, f := range fields {
		if f.value.Valid && strings.TrimSpace(f.value.String) == "" {
			violations = append(violations, &rekuest.ErrorResponse{
				Field:     f.name,
				Violation: "notblank",
				Message:   f.name + " must not be blank",
			})
		}
	}
	if len(violations) > 0 {
		return acterr.NewInvalidViolations(violations)
	}
	return nil
}

func (c *Activity) DeleteActivity(ctx *fiber.Ctx) error {
	if err := c.ActivityService.DeleteActivity(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("activityId")); err != nil {
		return err
	}

	return ctx.JSON(types.MessageResponse{Message: "activity deleted"})
}

func (c *Activity) StartActivity(ctx *fiber.Ctx) error {
	tr, err := c.ActivityService.StartActivity(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("activityId"))
	if err != nil {
		return err
	}

	resp := types.StartActivityResponse{Started: tr.Started}
	if len(tr.Closed) > 0 {
		resp.Closed = tr.Closed[0]
	}
	return ctx.JSON(resp)
}

func (c *Activity) StopActivity(ctx *fiber.Ctx) error {
	activity, err := c.ActivityService.StopActivity(ctx.UserContext(), middlewares.Actor(ctx), ctx.Params("activityId"))
	if err != nil {
		return err
	}

	return ctx.JSON(activity)
}
