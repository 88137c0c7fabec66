package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
)

// CertificateService composes certificates and serves stored artifacts.
type CertificateService struct {
	users     port.UserRepository
	renderer  port.CertificateRenderer
	artifacts port.ArtifactStore
	audit     AuditWriter
	now       func() time.Time
}

// NewCertificateService creates a certificate service. audit may be nil.
func NewCertificateService(users port.UserRepository, renderer port.CertificateRenderer, artifacts port.ArtifactStore, audit AuditWriter) *CertificateService {
	return &CertificateService{
		users:     users,
		renderer:  renderer,
		artifacts: artifacts,
		audit:     audit,
		now:       time.Now,
	}
}

// Generate renders a certificate for subjectID and course and stores it
// under a deterministic name, replacing an earlier one for the same pair.
func (s *CertificateService) Generate(ctx context.Context, subjectID, course string) (*domain.CertificateArtifact, error) {
	user, err := s.users.GetBySubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	holder := strings.TrimSpace(user.Name)
	if holder == "" {
		holder = domain.DefaultHolderName
	}
	course = strings.TrimSpace(course)
	if course == "" {
		course = domain.DefaultCourseName
	}

	issuedAt := s.now()
	filename := domain.ArtifactFilename(domain.CertificatePrefix, user.ID, domain.SafeCourseToken(course))
	doc := domain.CertificateDocument{
		HolderName:     holder,
		CourseName:     course,
		IssuedAt:       issuedAt,
		CompletionDate: domain.CompletionDate(issuedAt),
		Payload:        domain.VerificationPayload(holder, course, issuedAt),
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(ctx, doc, &buf); err != nil {
		return nil, &port.RenderError{Err: err}
	}

	location, err := s.artifacts.Save(ctx, filename, &buf)
	if err != nil {
		return nil, &port.RenderError{Err: fmt.Errorf("store artifact: %w", err)}
	}

	slog.Info("certificate issued", "user_id", user.ID, "filename", filename)
	if s.audit != nil {
		writeAudit(s.audit, user.ID, domain.AuditActionCertificateIssued, "certificate", filename,
			map[string]string{"course": course})
	}

	return &domain.CertificateArtifact{
		Filename:    filename,
		FilePath:    location,
		DownloadURL: domain.DownloadURL(filename),
	}, nil
}

// Open returns a stored artifact. The existence check runs before any
// content is opened.
func (s *CertificateService) Open(ctx context.Context, filename string) (io.ReadCloser, int64, error) {
	if _, err := s.artifacts.Stat(ctx, filename); err != nil {
		if errors.Is(err, port.ErrArtifactNotFound) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("stat artifact: %w", err)
	}
	return s.artifacts.Open(ctx, filename)
}
