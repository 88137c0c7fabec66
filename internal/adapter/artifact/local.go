// Package artifact stores generated certificate files on local disk, S3 or
// an SFTP server.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/arturoeanton/certify-ai/internal/port"
)

// ValidName reports whether name is a plain file name that cannot escape the
// artifact directory.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\`+"\x00")
}

// LocalStore keeps artifacts in a directory on disk.
type LocalStore struct {
	dir string
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes the artifact through a temp file and renames it into place so
// readers never see a partial file. An existing artifact is replaced.
func (s *LocalStore) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}

	dst := filepath.Join(s.dir, name)
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("move artifact into place: %w", err)
	}
	return dst, nil
}

func (s *LocalStore) Stat(_ context.Context, name string) (int64, error) {
	if !ValidName(name) {
		return 0, port.ErrArtifactNotFound
	}
	info, err := os.Stat(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, port.ErrArtifactNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, port.ErrArtifactNotFound
	}
	return info.Size(), nil
}

func (s *LocalStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	size, err := s.Stat(ctx, name)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, port.ErrArtifactNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open artifact: %w", err)
	}
	return f, size, nil
}
