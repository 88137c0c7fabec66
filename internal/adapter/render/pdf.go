// Package render lays out certificate PDFs.
package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
)

// A4 landscape, millimetres.
const (
	pageWidth  = 297.0
	pageHeight = 210.0

	qrSize   = 40.0
	qrMargin = 20.0
	qrPixels = 256
)

// Block is one element of the certificate page.
type Block string

const (
	BlockBorder     Block = "border"
	BlockTitle      Block = "title"
	BlockSalutation Block = "salutation"
	BlockName       Block = "name"
	BlockCompletion Block = "completion"
	BlockCourse     Block = "course"
	BlockDate       Block = "date"
	BlockFooter     Block = "footer"
	BlockCode       Block = "code"
)

// Layout returns the blocks in the order they are drawn.
func Layout() []Block {
	return []Block{
		BlockBorder, BlockTitle, BlockSalutation, BlockName, BlockCompletion,
		BlockCourse, BlockDate, BlockFooter, BlockCode,
	}
}

// PDFRenderer implements port.CertificateRenderer with fpdf and a QR code
// rendered to a temporary PNG.
type PDFRenderer struct {
	issuer  string
	tempDir string
	logger  *slog.Logger

	// onBlock, when set, is called as each block is drawn.
	onBlock func(Block)
}

// NewPDFRenderer creates a renderer. issuer is printed in the footer; an
// empty tempDir uses the OS default.
func NewPDFRenderer(issuer, tempDir string, logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{issuer: issuer, tempDir: tempDir, logger: logger}
}

// Render writes a one-page certificate for doc to w.
func (r *PDFRenderer) Render(ctx context.Context, doc domain.CertificateDocument, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	qrPath, err := r.writeQR(doc.Payload)
	if err != nil {
		return err
	}
	defer r.removeTemp(qrPath)

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, b := range Layout() {
		r.draw(pdf, tr, b, doc, qrPath)
		if r.onBlock != nil {
			r.onBlock(b)
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func (r *PDFRenderer) writeQR(payload string) (string, error) {
	f, err := os.CreateTemp(r.tempDir, "qr-*.png")
	if err != nil {
		return "", fmt.Errorf("create qr temp file: %w", err)
	}
	path := f.Name()
	f.Close()

	if err := qrcode.WriteFile(payload, qrcode.Medium, qrPixels, path); err != nil {
		r.removeTemp(path)
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return path, nil
}

func (r *PDFRenderer) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn("failed to remove temporary QR file", "path", path, "error", err)
	}
}

func (r *PDFRenderer) draw(pdf *fpdf.Fpdf, tr func(string) string, b Block, doc domain.CertificateDocument, qrPath string) {
	const contentWidth = pageWidth - 20

	switch b {
	case BlockBorder:
		pdf.SetLineWidth(2)
		pdf.Rect(5, 5, pageWidth-10, pageHeight-10, "D")

	case BlockTitle:
		pdf.SetFont("Arial", "B", 48)
		pdf.SetTextColor(24, 75, 127)
		pdf.Ln(20)
		pdf.CellFormat(contentWidth, 20, "CERTIFICATE OF COMPLETION", "", 1, "C", false, 0, "")

	case BlockSalutation:
		pdf.SetFont("Arial", "", 18)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
		pdf.CellFormat(contentWidth, 10, "This certifies that", "", 1, "C", false, 0, "")

	case BlockName:
		pdf.SetFont("Arial", "B", 36)
		pdf.SetTextColor(16, 126, 172)
		pdf.Ln(5)
		pdf.CellFormat(contentWidth, 20, tr(doc.HolderName), "", 1, "C", false, 0, "")

	case BlockCompletion:
		pdf.SetFont("Arial", "", 18)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(5)
		pdf.CellFormat(contentWidth, 10, "has successfully completed the course on", "", 1, "C", false, 0, "")

	case BlockCourse:
		pdf.SetFont("Arial", "I", 30)
		pdf.SetTextColor(70, 70, 70)
		pdf.Ln(5)
		pdf.CellFormat(contentWidth, 15, tr(doc.CourseName), "", 1, "C", false, 0, "")

	case BlockDate:
		pdf.SetXY(pageWidth/2-25, pageHeight-30)
		pdf.SetFont("Arial", "", 14)
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(50, 5, "Date: "+doc.CompletionDate, "", 0, "C", false, 0, "")

	case BlockFooter:
		pdf.SetLineWidth(0.3)
		pdf.SetFont("Arial", "I", 12)
		pdf.SetXY(30, pageHeight-35)
		pdf.CellFormat(50, 5, "", "T", 0, "C", false, 0, "")
		pdf.SetXY(30, pageHeight-30)
		pdf.CellFormat(50, 5, "Instructor Signature", "", 0, "C", false, 0, "")
		if r.issuer != "" {
			pdf.SetFont("Arial", "", 8)
			pdf.SetTextColor(110, 110, 110)
			pdf.SetXY(10, pageHeight-14)
			pdf.CellFormat(pageWidth-20, 4, tr("Issued by "+r.issuer+". Scan the code to read the certificate details."), "", 0, "C", false, 0, "")
		}

	case BlockCode:
		pdf.ImageOptions(qrPath, pageWidth-qrSize-qrMargin, pageHeight-qrSize-qrMargin, qrSize, qrSize,
			false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}
}
