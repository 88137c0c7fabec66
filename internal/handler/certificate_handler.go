package handler

import (
	"github.com/arturoeanton/certify-ai/internal/middleware"
	"github.com/arturoeanton/certify-ai/internal/policy"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/arturoeanton/certify-ai/internal/service"
	"github.com/gofiber/fiber/v3"
)

// CertificateHandler handles certificate generation and download.
type CertificateHandler struct {
	certService *service.CertificateService
}

// NewCertificateHandler creates a new certificate handler.
func NewCertificateHandler(certService *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certService: certService}
}

// Register sets up certificate routes. Downloads are not authenticated.
func (h *CertificateHandler) Register(router fiber.Router, gate fiber.Handler, authz middleware.Authorizer) {
	cert := router.Group("/certificate")
	cert.Post("/generate", gate, middleware.Authorize(authz, policy.ActionCertificateGenerate), h.Generate)
	cert.Get("/download/:filename", h.Download)
}

// Generate renders a certificate for the caller and returns its download URL.
func (h *CertificateHandler) Generate(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return middleware.RespondError(c, port.ErrUnauthorized)
	}

	var body struct {
		CourseName string `json:"course_name"`
	}
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&body); err != nil {
			return invalidBody(c)
		}
	}

	art, err := h.certService.Generate(c.Context(), uc.UserID, body.CourseName)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"message":      "Certificate generated",
		"download_url": art.DownloadURL,
	})
}

// Download streams a stored certificate as a PDF attachment.
func (h *CertificateHandler) Download(c fiber.Ctx) error {
	filename := c.Params("filename")

	rc, size, err := h.certService.Open(c.Context(), filename)
	if err != nil {
		return middleware.RespondError(c, err)
	}

	c.Attachment(filename)
	c.Set(fiber.HeaderContentType, "application/pdf")
	// the response closes rc once the body is written
	return c.SendStream(rc, int(size))
}
