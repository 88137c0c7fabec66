package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// SFTPConfig configures the remote artifact directory.
type SFTPConfig struct {
	Host      string
	Port      int
	User      string
	Pass      string
	RemoteDir string
}

// connectFunc opens an SFTP session. The returned closer tears down the
// session and its transport.
type connectFunc func(ctx context.Context) (*sftp.Client, io.Closer, error)

// SFTPStore keeps artifacts in a directory on an SFTP server. Each operation
// opens its own session.
type SFTPStore struct {
	remoteDir string
	connect   connectFunc
}

// NewSFTPStore validates cfg and returns a store dialing with password auth.
func NewSFTPStore(cfg SFTPConfig) (*SFTPStore, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.Pass == "" {
		return nil, errors.New("sftp: missing SFTP_HOST / SFTP_USER / SFTP_PASS")
	}
	if cfg.Port <= 0 {
		cfg.Port = 22
	}
	if cfg.RemoteDir == "" {
		cfg.RemoteDir = "/"
	}
	return &SFTPStore{remoteDir: cfg.RemoteDir, connect: sshDialer(cfg)}, nil
}

func sshDialer(cfg SFTPConfig) connectFunc {
	sshCfg := &ssh.ClientConfig{
		User: cfg.User,
		Auth: []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		// TODO: verify host keys against a known_hosts file from config.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         20 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	return func(ctx context.Context) (*sftp.Client, io.Closer, error) {
		ch := make(chan dialResult[*ssh.Client], 1)
		go func() {
			c, err := ssh.Dial("tcp", addr, sshCfg)
			ch <- dialResult[*ssh.Client]{conn: c, err: err}
		}()

		sshClient, err := awaitDial(ctx, ch)
		if err != nil {
			return nil, nil, err
		}

		sftpCli, err := sftp.NewClient(sshClient)
		if err != nil {
			sshClient.Close()
			return nil, nil, fmt.Errorf("sftp: new client: %w", err)
		}
		return sftpCli, sshClient, nil
	}
}

type dialResult[T io.Closer] struct {
	conn T
	err  error
}

// awaitDial waits for a pending dial. A connection that arrives after ctx
// is done gets closed.
func awaitDial[T io.Closer](ctx context.Context, ch <-chan dialResult[T]) (T, error) {
	var zero T
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.err == nil {
				r.conn.Close()
			}
		}()
		return zero, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return zero, fmt.Errorf("sftp: dial error: %w", r.err)
		}
		return r.conn, nil
	}
}

type session struct {
	client    *sftp.Client
	transport io.Closer
}

func (s session) Close() error {
	err := s.client.Close()
	if s.transport != nil {
		if terr := s.transport.Close(); err == nil {
			err = terr
		}
	}
	return err
}

func (s *SFTPStore) open(ctx context.Context) (session, error) {
	c, transport, err := s.connect(ctx)
	if err != nil {
		return session{}, err
	}
	return session{client: c, transport: transport}, nil
}

func (s *SFTPStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}

	sess, err := s.open(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	if err := sess.client.MkdirAll(s.remoteDir); err != nil {
		return "", fmt.Errorf("sftp: mkdir %s: %w", s.remoteDir, err)
	}

	remotePath := path.Join(s.remoteDir, name)
	dst, err := sess.client.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return "", fmt.Errorf("sftp: create remote file: %w", err)
	}

	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		return "", fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("sftp: close remote file: %w", err)
	}
	return remotePath, nil
}

func (s *SFTPStore) Stat(ctx context.Context, name string) (int64, error) {
	if !ValidName(name) {
		return 0, port.ErrArtifactNotFound
	}

	sess, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Close()

	return statRemote(sess.client, path.Join(s.remoteDir, name))
}

func statRemote(c *sftp.Client, p string) (int64, error) {
	info, err := c.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, port.ErrArtifactNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sftp: stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, port.ErrArtifactNotFound
	}
	return info.Size(), nil
}

// remoteFile closes the session together with the file.
type remoteFile struct {
	*sftp.File
	sess session
}

func (f remoteFile) Close() error {
	err := f.File.Close()
	if serr := f.sess.Close(); err == nil {
		err = serr
	}
	return err
}

func (s *SFTPStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	if !ValidName(name) {
		return nil, 0, port.ErrArtifactNotFound
	}

	sess, err := s.open(ctx)
	if err != nil {
		return nil, 0, err
	}

	p := path.Join(s.remoteDir, name)
	size, err := statRemote(sess.client, p)
	if err != nil {
		sess.Close()
		return nil, 0, err
	}

	f, err := sess.client.Open(p)
	if err != nil {
		sess.Close()
		return nil, 0, fmt.Errorf("sftp: open: %w", err)
	}
	return remoteFile{File: f, sess: sess}, size, nil
}
