package render

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocument() domain.CertificateDocument {
	at := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)
	return domain.CertificateDocument{
		HolderName:     "Ada Lovelace",
		CourseName:     "Intro to Testing",
		IssuedAt:       at,
		CompletionDate: domain.CompletionDate(at),
		Payload:        domain.VerificationPayload("Ada Lovelace", "Intro to Testing", at),
	}
}

func TestPDFRenderer_WritesPDFAndRemovesQR(t *testing.T) {
	tmp := t.TempDir()
	r := NewPDFRenderer("Certify AI", tmp, nil)

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), testDocument(), &buf))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary QR file must be removed")
}

func TestPDFRenderer_LayoutOrder(t *testing.T) {
	r := NewPDFRenderer("", t.TempDir(), nil)

	var drawn []Block
	r.onBlock = func(b Block) { drawn = append(drawn, b) }

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), testDocument(), &buf))

	assert.Equal(t, []Block{
		BlockBorder, BlockTitle, BlockSalutation, BlockName, BlockCompletion,
		BlockCourse, BlockDate, BlockFooter, BlockCode,
	}, drawn)
}

func TestPDFRenderer_NonLatinNames(t *testing.T) {
	r := NewPDFRenderer("Certify AI", t.TempDir(), nil)
	doc := testDocument()
	doc.HolderName = "José Müller"
	doc.CourseName = "Café Basics"

	var buf bytes.Buffer
	require.NoError(t, r.Render(context.Background(), doc, &buf))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}

func TestPDFRenderer_CanceledContext(t *testing.T) {
	tmp := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.Error(t, NewPDFRenderer("", tmp, nil).Render(ctx, testDocument(), &buf))
	assert.Zero(t, buf.Len())
}

func TestPDFRenderer_MissingTempDir(t *testing.T) {
	r := NewPDFRenderer("", "/nonexistent/certify-test-dir", nil)

	var buf bytes.Buffer
	assert.Error(t, r.Render(context.Background(), testDocument(), &buf))
}
