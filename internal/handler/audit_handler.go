package handler

import (
	"strconv"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/middleware"
	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/gofiber/fiber/v3"
)

const maxAuditLimit = 1000

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	store port.AuditStore
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(store port.AuditStore) *AuditHandler {
	return &AuditHandler{store: store}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router, gate fiber.Handler, authz middleware.Authorizer) {
	audit := router.Group("/audit")
	audit.Get("/logs", gate, middleware.Authorize(authz, policy.ActionAuditRead), h.ListLogs)
}

// ListLogs returns audit logs with optional filtering.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	action := c.Query("action", "")

	logs, err := h.store.ListAuditLogs(c.Context(), limit, action)
	if err != nil {
		return middleware.RespondError(c, err)
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
