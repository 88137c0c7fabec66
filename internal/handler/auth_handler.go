package handler

import (
	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/middleware"
	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/arturoeanton/certify-ai/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register sets up auth routes. register and login are public.
func (h *AuthHandler) Register(router fiber.Router, gate fiber.Handler, authz middleware.Authorizer) {
	auth := router.Group("/auth")
	auth.Post("/register", h.SignUp)
	auth.Post("/login", h.Login)
	auth.Get("/verify", gate, h.Verify)
	auth.Post("/onboard", gate, middleware.Authorize(authz, policy.ActionProfileOnboard), h.Onboard)
	auth.Get("/profile", gate, middleware.Authorize(authz, policy.ActionProfileRead), h.Profile)
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IDToken  string `json:"id_token"`
	UserType string `json:"user_type"`
}

// SignUp creates an account. Self-issued deployments take email and
// password; delegated ones take an identity-provider id_token.
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var body credentialsRequest
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	var (
		res *service.AuthResult
		err error
	)
	if h.authService.Mode() == port.AuthModeDelegated {
		if body.IDToken == "" {
			return middleware.RespondError(c, port.NewValidationError("id_token", "id_token required"))
		}
		res, err = h.authService.RegisterDelegated(c.Context(), body.IDToken, body.UserType)
	} else {
		res, err = h.authService.Register(c.Context(), body.Email, body.Password, body.UserType)
	}
	if err != nil {
		return middleware.RespondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse("Account created successfully", res))
}

// Login exchanges credentials for the caller's profile (and a token under
// self-issued auth).
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body credentialsRequest
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	var (
		res *service.AuthResult
		err error
	)
	if h.authService.Mode() == port.AuthModeDelegated {
		if body.IDToken == "" {
			return middleware.RespondError(c, port.NewValidationError("id_token", "id_token required"))
		}
		res, err = h.authService.LoginDelegated(c.Context(), body.IDToken, body.UserType)
	} else {
		res, err = h.authService.Login(c.Context(), body.Email, body.Password)
	}
	if err != nil {
		return middleware.RespondError(c, err)
	}

	return c.JSON(authResponse("Login successful", res))
}

// Verify confirms the bearer token and echoes who it belongs to.
func (h *AuthHandler) Verify(c fiber.Ctx) error {
	user := middleware.GetProfile(c)
	if user == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	summary := userSummary(user)
	summary["onboarded"] = user.Onboarded
	return c.JSON(fiber.Map{"success": true, "user": summary})
}

// Onboard fills in the caller's profile.
func (h *AuthHandler) Onboard(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	var body domain.OnboardingFields
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	user, err := h.authService.Onboard(c.Context(), uc.UserID, body)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated",
		"user":    user,
	})
}

// Profile returns the caller's full stored profile.
func (h *AuthHandler) Profile(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	user, err := h.authService.Profile(c.Context(), uc.UserID)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

func authResponse(message string, res *service.AuthResult) fiber.Map {
	resp := fiber.Map{
		"success": true,
		"message": message,
		"user":    userSummary(res.User),
	}
	if res.Token != "" {
		resp["token"] = res.Token
	}
	return resp
}

func userSummary(u *domain.UserProfile) fiber.Map {
	return fiber.Map{
		"id":        u.ID,
		"email":     u.Email,
		"user_type": u.Role,
	}
}

func invalidBody(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}
