package middleware

import (
	"context"
	"strings"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/gofiber/fiber/v3"
)

const (
	userKey    = "user"
	profileKey = "profile"
)

// Authenticator resolves a bearer credential to a stored profile.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*domain.UserProfile, error)
}

// AuthGate validates the Authorization header and injects a UserContext
// (and the full profile) into the request.
func AuthGate(auth Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		token := bearerToken(c.Get("Authorization"))
		if token == "" {
			return RespondError(c, port.ErrMissingCredential)
		}

		user, err := auth.Authenticate(c.Context(), token)
		if err != nil {
			return RespondError(c, err)
		}

		c.Locals(userKey, &domain.UserContext{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.Name,
			Role:      user.Role,
			Onboarded: user.Onboarded,
		})
		c.Locals(profileKey, user)
		return c.Next()
	}
}

// bearerToken strips an optional "Bearer " prefix; a bare header value is
// taken as the raw token.
func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	if strings.EqualFold(header, "bearer") {
		return ""
	}
	return header
}

// GetUserContext extracts the UserContext from the Fiber context.
func GetUserContext(c fiber.Ctx) *domain.UserContext {
	uc, ok := c.Locals(userKey).(*domain.UserContext)
	if !ok {
		return nil
	}
	return uc
}

// GetProfile returns the profile loaded by AuthGate.
func GetProfile(c fiber.Ctx) *domain.UserProfile {
	p, ok := c.Locals(profileKey).(*domain.UserProfile)
	if !ok {
		return nil
	}
	return p
}
