package port

import (
	"context"
	"io"

	"github.com/arturoeanton/certify-ai/internal/domain"
)

// ArtifactStore persists generated certificate files.
type ArtifactStore interface {
	// Save writes (or overwrites) the named artifact and returns where it
	// ended up (a local path, an s3:// URI, or a remote path).
	Save(ctx context.Context, name string, r io.Reader) (string, error)

	// Stat returns the artifact size, or ErrArtifactNotFound.
	Stat(ctx context.Context, name string) (int64, error)

	// Open streams the artifact. Callers must close the reader.
	Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
}

// CertificateRenderer lays out a certificate document and writes the
// finished file to w.
type CertificateRenderer interface {
	Render(ctx context.Context, doc domain.CertificateDocument, w io.Writer) error
}
