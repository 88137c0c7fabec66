package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arturoeanton/certify-ai/internal/adapter/artifact"
	"github.com/arturoeanton/certify-ai/internal/adapter/render"
	"github.com/arturoeanton/certify-ai/internal/adapter/store"
	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureRenderer struct {
	mu   sync.Mutex
	docs []domain.CertificateDocument
	err  error
}

func (c *captureRenderer) Render(_ context.Context, doc domain.CertificateDocument, w io.Writer) error {
	c.mu.Lock()
	c.docs = append(c.docs, doc)
	c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	_, err := w.Write([]byte("%PDF-fake " + doc.CourseName))
	return err
}

func seedUser(t *testing.T, s *store.MemoryStore, id, name string) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &domain.UserProfile{ID: id, Email: id + "@x.com", Name: name, Role: domain.RoleStudent}))
}

var fixedIssue = time.Date(2026, time.March, 4, 9, 30, 0, 0, time.UTC)

func newCertService(t *testing.T, r port.CertificateRenderer) (*CertificateService, *store.MemoryStore, string, *recordingAudit) {
	t.Helper()
	users := store.NewMemoryStore()
	dir := filepath.Join(t.TempDir(), "certificates")
	artifacts, err := artifact.NewLocalStore(dir)
	require.NoError(t, err)

	audit := &recordingAudit{}
	svc := NewCertificateService(users, r, artifacts, audit)
	svc.now = func() time.Time { return fixedIssue }
	return svc, users, dir, audit
}

func TestCertificateService_Generate(t *testing.T) {
	ctx := context.Background()
	rend := &captureRenderer{}
	svc, users, dir, audit := newCertService(t, rend)
	seedUser(t, users, "u-1", "Ada")

	art, err := svc.Generate(ctx, "u-1", "Intro to Testing")
	require.NoError(t, err)

	assert.Equal(t, "certificate_u-1_Intro_to_Testing.pdf", art.Filename)
	assert.Equal(t, "/api/certificate/download/certificate_u-1_Intro_to_Testing.pdf", art.DownloadURL)
	assert.Equal(t, filepath.Join(dir, art.Filename), art.FilePath)
	assert.FileExists(t, art.FilePath)

	require.Len(t, rend.docs, 1)
	doc := rend.docs[0]
	assert.Equal(t, "Ada", doc.HolderName)
	assert.Equal(t, "User: Ada | Course: Intro to Testing | Date: 2026-03-04", doc.Payload)
	assert.Equal(t, "March 04, 2026", doc.CompletionDate)
	assert.True(t, audit.has(domain.AuditActionCertificateIssued))
}

func TestCertificateService_Defaults(t *testing.T) {
	ctx := context.Background()
	rend := &captureRenderer{}
	svc, users, _, _ := newCertService(t, rend)
	seedUser(t, users, "u-2", "")

	art, err := svc.Generate(ctx, "u-2", "   ")
	require.NoError(t, err)

	assert.Equal(t, "certificate_u-2_Unnamed_Course.pdf", art.Filename)
	assert.Equal(t, domain.DefaultHolderName, rend.docs[0].HolderName)
	assert.Equal(t, domain.DefaultCourseName, rend.docs[0].CourseName)
}

func TestCertificateService_RegenerateOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, users, dir, _ := newCertService(t, &captureRenderer{})
	seedUser(t, users, "u-1", "Ada")

	first, err := svc.Generate(ctx, "u-1", "Go 101")
	require.NoError(t, err)
	second, err := svc.Generate(ctx, "u-1", "Go 101")
	require.NoError(t, err)

	assert.Equal(t, first.Filename, second.Filename)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCertificateService_Errors(t *testing.T) {
	ctx := context.Background()

	svc, _, _, _ := newCertService(t, &captureRenderer{})
	_, err := svc.Generate(ctx, "ghost", "x")
	assert.ErrorIs(t, err, port.ErrUserNotFound)

	failing, users, dir, _ := newCertService(t, &captureRenderer{err: errors.New("font missing")})
	seedUser(t, users, "u-1", "Ada")
	_, err = failing.Generate(ctx, "u-1", "x")
	var rerr *port.RenderError
	assert.True(t, errors.As(err, &rerr))

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "nothing stored when rendering fails")
}

func TestCertificateService_Open(t *testing.T) {
	ctx := context.Background()
	svc, users, _, _ := newCertService(t, &captureRenderer{})
	seedUser(t, users, "u-1", "Ada")

	art, err := svc.Generate(ctx, "u-1", "Go")
	require.NoError(t, err)

	rc, size, err := svc.Open(ctx, art.Filename)
	require.NoError(t, err)
	defer rc.Close()
	body, _ := io.ReadAll(rc)
	assert.Equal(t, int64(len(body)), size)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF")))

	_, _, err = svc.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
	_, _, err = svc.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
}

func TestCertificateService_WithPDFRenderer(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	svc, users, _, _ := newCertService(t, render.NewPDFRenderer("Certify AI", tmp, nil))
	seedUser(t, users, "u-1", "Ada")

	art, err := svc.Generate(ctx, "u-1", "C++ & Data/Structures!")
	require.NoError(t, err)
	assert.Equal(t, "certificate_u-1_C_DataStructures.pdf", art.Filename)

	data, err := os.ReadFile(art.FilePath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	leftovers, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
