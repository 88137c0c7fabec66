package handler

import (
	"github.com/arturoeanton/certify-ai/internal/middleware"
	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/arturoeanton/certify-ai/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AIHandler exposes the study assistant.
type AIHandler struct {
	assistant *service.AssistantService
}

// NewAIHandler creates a new assistant handler.
func NewAIHandler(assistant *service.AssistantService) *AIHandler {
	return &AIHandler{assistant: assistant}
}

// Register sets up assistant routes.
func (h *AIHandler) Register(router fiber.Router, gate fiber.Handler, authz middleware.Authorizer) {
	ai := router.Group("/ai", gate)
	ai.Post("/chat", middleware.Authorize(authz, policy.ActionAIChat), h.Chat)
	ai.Post("/generate-notes", middleware.Authorize(authz, policy.ActionAINotes), h.GenerateNotes)
	ai.Post("/generate-roadmap", middleware.Authorize(authz, policy.ActionAIRoadmap), h.GenerateRoadmap)
}

// Chat answers a message within a rolling session.
func (h *AIHandler) Chat(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	var body struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
		Context   string `json:"context"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	reply, err := h.assistant.Chat(c.Context(), uc.UserID, body.SessionID, body.Message, body.Context)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(reply)
}

// GenerateNotes writes study notes for a topic.
func (h *AIHandler) GenerateNotes(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	var body struct {
		Topic string `json:"topic"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	notes, err := h.assistant.GenerateNotes(c.Context(), uc.UserID, body.Topic)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(notes)
}

// GenerateRoadmap builds a learning roadmap towards a goal.
func (h *AIHandler) GenerateRoadmap(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	var body struct {
		Goal string `json:"goal"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return invalidBody(c)
	}

	roadmap, err := h.assistant.GenerateRoadmap(c.Context(), uc.UserID, body.Goal)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	return c.JSON(fiber.Map{"roadmap": roadmap})
}
