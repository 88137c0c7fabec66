package handler

import "github.com/gofiber/fiber/v3"

// HealthHandler reports liveness.
type HealthHandler struct {
	app     string
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(app, version string) *HealthHandler {
	return &HealthHandler{app: app, version: version}
}

// Register sets up the health route.
func (h *HealthHandler) Register(router fiber.Router) {
	router.Get("/health", h.Health)
}

// Health always answers ok while the process serves requests.
func (h *HealthHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"app":     h.app,
		"version": h.version,
	})
}
