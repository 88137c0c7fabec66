package middleware

import (
	"errors"
	"log/slog"

	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/gofiber/fiber/v3"
)

var authMessages = map[port.AuthErrorKind]string{
	port.AuthMissing:        "Authorization header missing",
	port.AuthMalformed:      "Malformed token",
	port.AuthExpired:        "Token expired",
	port.AuthInvalid:        "Invalid token",
	port.AuthUnknownSubject: "User not found",
}

// ErrorStatus maps a service or port error to an HTTP status and the
// message sent to the client.
func ErrorStatus(err error) (int, string) {
	var (
		authErr     *port.AuthError
		validErr    *port.ValidationError
		upstreamErr *port.UpstreamError
		renderErr   *port.RenderError
	)

	switch {
	case errors.As(err, &authErr):
		if authErr.Kind == port.AuthUnknownSubject {
			return fiber.StatusNotFound, authMessages[authErr.Kind]
		}
		return fiber.StatusUnauthorized, authMessages[authErr.Kind]
	case errors.As(err, &validErr):
		return fiber.StatusBadRequest, validErr.Error()
	case errors.Is(err, port.ErrDuplicateUser):
		return fiber.StatusConflict, "User already exists"
	case errors.Is(err, port.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, port.ErrUnauthorized):
		return fiber.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, port.ErrUserNotFound):
		return fiber.StatusNotFound, "User not found"
	case errors.Is(err, port.ErrArtifactNotFound):
		return fiber.StatusNotFound, "Certificate not found"
	case errors.Is(err, port.ErrSessionNotFound):
		return fiber.StatusNotFound, "Chat session not found"
	case errors.Is(err, port.ErrForbidden):
		return fiber.StatusForbidden, "Forbidden"
	case errors.Is(err, port.ErrUnsupportedLogin):
		return fiber.StatusBadRequest, "Login method not supported by this deployment"
	case errors.As(err, &upstreamErr):
		return fiber.StatusInternalServerError, upstreamErr.Service + " unavailable"
	case errors.As(err, &renderErr):
		return fiber.StatusInternalServerError, "Certificate generation failed"
	}
	return fiber.StatusInternalServerError, "Internal server error"
}

// RespondError writes err as {"error": message}. Server-side failures are
// logged with their full chain.
func RespondError(c fiber.Ctx, err error) error {
	status, msg := ErrorStatus(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
