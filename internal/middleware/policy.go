package middleware

import (
	"context"
	"log/slog"

	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/gofiber/fiber/v3"
)

// Authorizer decides whether a caller may perform an action.
type Authorizer interface {
	Allow(ctx context.Context, in policy.Input) (bool, error)
}

// Authorize checks action against the policy for the user set by AuthGate.
// It must run after AuthGate.
func Authorize(authz Authorizer, action string) fiber.Handler {
	return func(c fiber.Ctx) error {
		uc := GetUserContext(c)
		if uc == nil {
			return RespondError(c, port.ErrUnauthorized)
		}

		ok, err := authz.Allow(c.Context(), policy.Input{
			Action:    action,
			Role:      uc.Role,
			Onboarded: uc.Onboarded,
		})
		if err != nil {
			slog.Error("policy evaluation failed", "action", action, "error", err)
			return RespondError(c, err)
		}
		if !ok {
			return RespondError(c, port.ErrForbidden)
		}
		return c.Next()
	}
}
