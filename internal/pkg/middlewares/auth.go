package middlewares

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"actiapp.dev/backend/internal/constant"
	"actiapp.dev/backend/internal/core/policy"
	"actiapp.dev/backend/internal/model"
	"actiapp.dev/backend/internal/pkg/acterr"
	"actiapp.dev/backend/internal/pkg/token"
)

type TokenVerifier interface {
	Verify(token string) (*token.Claims, error)
}

type UserLoader interface {
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

var (
	ErrMissingCredential = acterr.ErrUnauthorized.Msg("missing bearer token")
	ErrInvalidCredential = acterr.ErrUnauthorized.Msg("invalid or expired bearer token")
)

// Authenticate resolves the bearer token into a policy.Actor stored in ctx.Locals.
// The actor carries the role and organization currently stored for the user, not the
// ones captured in the token at login. When required is false, requests without an
// Authorization header pass through anonymously.
func Authenticate(verifier TokenVerifier, users UserLoader, required bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(fiber.HeaderAuthorization)
		if raw == "" {
			if required {
				return ErrMissingCredential
			}
			return c.Next()
		}

		realm, credential, ok := strings.Cut(raw, " ")
		if !ok || !strings.EqualFold(realm, constant.AuthorizationRealm) {
			return ErrInvalidCredential
		}

		claims, err := verifier.Verify(credential)
		if err != nil {
			if l := log.Trace(); l.Enabled() {
				l.Err(err).Str("evt.name", "http.auth.invalid_token").Msg("rejected bearer token")
			}
			return ErrInvalidCredential
		}

		user, err := users.GetUserByID(c.UserContext(), claims.Subject)
		if errors.Is(err, acterr.ErrNotFound) {
			return ErrInvalidCredential
		} else if err != nil {
			return err
		}

		c.Locals(constant.ContextKeyActor, policy.ActorOf(user))
		return c.Next()
	}
}

// Actor returns the authenticated caller, or nil for anonymous requests.
func Actor(c *fiber.Ctx) *policy.Actor {
	actor, _ := c.Locals(constant.ContextKeyActor).(*policy.Actor)
	return actor
}

// RequireRole rejects authenticated callers whose role is not listed.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := Actor(c)
		if actor == nil {
			return ErrMissingCredential
		}
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return acterr.ErrForbidden
	}
}
