package httpserver

import (
	"errors"
	"strconv"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/contrib/fibersentry"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/pkg/acterr"
)

func handleCustomError(ctx *fiber.Ctx, e *acterr.ActiError) error {
	if e.StatusCode < fiber.StatusInternalServerError {
		log.Debug().
			Err(e).
			Str("evt.name", "http.error.client").
			Str("method", ctx.Method()).
			Str("path", ctx.Path()).
			Msg(e.Message)
	}

	body := fiber.Map{
		"code":    e.ErrorCode,
		"message": e.Message,
	}

	if e.Extras != nil && len(*e.Extras) > 0 {
		for k, v := range *e.Extras {
			body[k] = v
		}
	}

	return ctx.Status(e.StatusCode).JSON(body)
}

// ErrorHandler renders acterr.ActiError as `{code, message, ...extras}`. Anything
// else is reported as a generic 500, with the details kept to the logs and Sentry.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	var ae *acterr.ActiError
	if errors.As(err, &ae) {
		return handleCustomError(ctx, ae)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		// routing and body-level errors raised by fiber itself
		if fe.Code < fiber.StatusInternalServerError {
			return handleCustomError(ctx, acterr.New(fe.Code, codeForStatus(fe.Code), fe.Message))
		}
	}

	log.Error().
		Stack().
		Err(err).
		Str("evt.name", "http.error.internal").
		Str("method", ctx.Method()).
		Str("path", ctx.Path()).
		Msg("Internal Server Error")

	if hub := fibersentry.GetHubFromContext(ctx); hub != nil {
		hub.Scope().SetTag("status", strconv.Itoa(acterr.ErrInternalError.StatusCode))
		if actor, ok := ctx.Locals(constant.ContextKeyActor).(*policy.Actor); ok {
			hub.Scope().SetUser(sentry.User{
				ID: actor.UserID,
			})
		}
		hub.CaptureException(err)
	}

	return handleCustomError(ctx, acterr.ErrInternalError)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return acterr.CodeNotFound
	case fiber.StatusUnauthorized:
		return acterr.CodeUnauthorized
	case fiber.StatusForbidden:
		return acterr.CodeForbidden
	case fiber.StatusConflict:
		return acterr.CodeConflict
	case fiber.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	default:
		return acterr.CodeInvalidRequest
	}
}
