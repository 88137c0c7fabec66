package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	valid := []string{"certificate_u-1_Intro.pdf", "a.pdf", "x"}
	invalid := []string{"", ".env", "../secret.pdf", "a/b.pdf", `a\b.pdf`, "a..pdf", "..", "nul\x00.pdf"}

	for _, n := range valid {
		assert.True(t, ValidName(n), n)
	}
	for _, n := range invalid {
		assert.False(t, ValidName(n), n)
	}
}

func TestLocalStore_SaveStatOpen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "certs")
	s, err := NewLocalStore(dir)
	require.NoError(t, err)

	loc, err := s.Save(ctx, "c.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.pdf"), loc)

	_, err = s.Save(ctx, "c.pdf", strings.NewReader("second!"))
	require.NoError(t, err)

	size, err := s.Stat(ctx, "c.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(7), size)

	rc, size, err := s.Open(ctx, "c.pdf")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second!", string(body))
	assert.Equal(t, int64(7), size)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStore_NotFoundAndTraversal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.pdf"), []byte("x"), 0o600))

	s, err := NewLocalStore(filepath.Join(root, "certs"))
	require.NoError(t, err)

	for _, name := range []string{"missing.pdf", "../secret.pdf", ".hidden", "a/b"} {
		_, err := s.Stat(ctx, name)
		assert.ErrorIs(t, err, port.ErrArtifactNotFound, name)
		_, _, err = s.Open(ctx, name)
		assert.ErrorIs(t, err, port.ErrArtifactNotFound, name)
	}

	_, err = s.Save(ctx, "../escape.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func TestS3Store(t *testing.T) {
	ctx := context.Background()
	fake := &fakeS3{objects: map[string][]byte{}}
	s := &S3Store{client: fake, bucket: "bucket", prefix: "certificates/"}

	loc, err := s.Save(ctx, "c.pdf", strings.NewReader("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/certificates/c.pdf", loc)
	assert.Contains(t, fake.objects, "bucket/certificates/c.pdf")

	size, err := s.Stat(ctx, "c.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)

	rc, _, err := s.Open(ctx, "c.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "%PDF-1.3", string(body))

	_, err = s.Stat(ctx, "missing.pdf")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
	_, _, err = s.Open(ctx, "missing.pdf")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
	_, err = s.Stat(ctx, "../c.pdf")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
}

// inMemSFTP connects to an in-process SFTP request server shared across
// sessions.
func inMemSFTP(t *testing.T) connectFunc {
	handlers := sftp.InMemHandler()
	return func(context.Context) (*sftp.Client, io.Closer, error) {
		serverConn, clientConn := net.Pipe()
		server := sftp.NewRequestServer(serverConn, handlers)
		go server.Serve() //nolint:errcheck
		t.Cleanup(func() { server.Close() })

		client, err := sftp.NewClientPipe(clientConn, clientConn)
		if err != nil {
			return nil, nil, err
		}
		return client, clientConn, nil
	}
}

func TestSFTPStore(t *testing.T) {
	ctx := context.Background()
	s := &SFTPStore{remoteDir: "/certificates", connect: inMemSFTP(t)}

	loc, err := s.Save(ctx, "c.pdf", strings.NewReader("remote pdf"))
	require.NoError(t, err)
	assert.Equal(t, "/certificates/c.pdf", loc)

	size, err := s.Stat(ctx, "c.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)

	rc, _, err := s.Open(ctx, "c.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "remote pdf", string(body))

	_, err = s.Stat(ctx, "missing.pdf")
	assert.ErrorIs(t, err, port.ErrArtifactNotFound)
}

func TestNewSFTPStore_RequiresCredentials(t *testing.T) {
	_, err := NewSFTPStore(SFTPConfig{Host: "h"})
	assert.Error(t, err)

	s, err := NewSFTPStore(SFTPConfig{Host: "h", User: "u", Pass: "p"})
	require.NoError(t, err)
	assert.Equal(t, "/", s.remoteDir)
}

type closeCounter struct{ closed chan struct{} }

func (c closeCounter) Close() error {
	close(c.closed)
	return nil
}

func TestAwaitDial_ClosesLateConnection(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan dialResult[closeCounter], 1)
	_, err := awaitDial(ctx, ch)
	require.ErrorIs(t, err, context.Canceled)

	conn := closeCounter{closed: make(chan struct{})}
	ch <- dialResult[closeCounter]{conn: conn}

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("late connection was not closed")
	}
}

func TestAwaitDial_Result(t *testing.T) {
	ch := make(chan dialResult[closeCounter], 1)
	ch <- dialResult[closeCounter]{err: errors.New("refused")}
	_, err := awaitDial(context.Background(), ch)
	assert.ErrorContains(t, err, "refused")

	conn := closeCounter{closed: make(chan struct{})}
	ch <- dialResult[closeCounter]{conn: conn}
	got, err := awaitDial(context.Background(), ch)
	require.NoError(t, err)
	assert.Equal(t, conn, got)
}
