package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"deployer-backend/internal/model"
	"deployer-backend/internal/pkg/deployerr"
	"deployer-backend/internal/pkg/lineio"
	"deployer-backend/internal/pkg/upload"
)

const DefaultConnectTimeout = 30 * time.Second

// Session owns one authenticated connection to a deployment target. All
// remote work of a run goes through the same Session; it is not meant to be
// shared between runs.
type Session struct {
	connectTimeout time.Duration

	mu   sync.Mutex
	addr string
	conn *ssh.Client
	sftp *sftp.Client
}

type Option func(*Session)

func WithConnectTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

func NewSession(opts ...Option) *Session {
	s := &Session{connectTimeout: DefaultConnectTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials the server and authenticates with the single credential its
// auth mode names. There is no retry.
func (s *Session) Connect(ctx context.Context, server model.ServerConfig) error {
	addr := net.JoinHostPort(server.Host, strconv.Itoa(server.Port))

	auth, err := AuthMethods(server)
	if err != nil {
		var cfgErr *deployerr.AuthConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return &deployerr.ConnectError{Addr: addr, Err: err}
	}

	config := &ssh.ClientConfig{
		User:            server.Username,
		Auth:            auth,
		Timeout:         s.connectTimeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // host keys are not verified
	}

	dialer := net.Dialer{Timeout: s.connectTimeout}
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return &deployerr.ConnectError{Addr: addr, Err: err}
	}

	// bound the handshake, NewClientConn ignores config.Timeout
	_ = tcpConn.SetDeadline(time.Now().Add(s.connectTimeout))
	c, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, config)
	if err != nil {
		tcpConn.Close()
		return &deployerr.ConnectError{Addr: addr, Err: err}
	}
	_ = tcpConn.SetDeadline(time.Time{})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		c.Close()
		return fmt.Errorf("session already connected to %s", s.addr)
	}
	s.addr = addr
	s.conn = ssh.NewClient(c, chans, reqs)
	return nil
}

// AuthMethods builds the credential for server. A key is read from disk on
// every call so a rotated key file is picked up by the next run.
func AuthMethods(server model.ServerConfig) ([]ssh.AuthMethod, error) {
	switch server.AuthType {
	case model.AuthPassword:
		if server.Password == "" {
			return nil, &deployerr.AuthConfigError{Reason: "password auth without a password"}
		}
		return []ssh.AuthMethod{ssh.Password(server.Password)}, nil
	case model.AuthKey:
		if server.PrivateKeyPath == "" {
			return nil, &deployerr.AuthConfigError{Reason: "key auth without a private key path"}
		}
		pemBytes, err := os.ReadFile(server.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pemBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", server.PrivateKeyPath, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	default:
		return nil, &deployerr.AuthConfigError{Reason: fmt.Sprintf("unknown auth type %q", server.AuthType)}
	}
}

func (s *Session) client() (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, deployerr.ErrNotConnected
	}
	return s.conn, nil
}

// Execute runs command on the open connection and forwards its output line
// by line. Stderr lines carry lineio.StderrPrefix. Only exit status 0 is
// success.
func (s *Session) Execute(command string, onOutput func(string)) error {
	conn, err := s.client()
	if err != nil {
		return err
	}

	session, err := conn.NewSession()
	if err != nil {
		return fmt.Errorf("open SSH session: %w", err)
	}
	defer session.Close()

	em := lineio.NewEmitter(onOutput)
	stdout := em.Writer("")
	stderr := em.Writer(lineio.StderrPrefix)
	session.Stdout = stdout
	session.Stderr = stderr

	err = session.Run(command)
	stdout.Flush()
	stderr.Flush()

	if err == nil {
		return nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &deployerr.RemoteCommandError{Command: command, ExitCode: exitErr.ExitStatus()}
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		return &deployerr.RemoteCommandError{Command: command, ExitCode: -1}
	}
	return fmt.Errorf("run remote command %q: %w", command, err)
}

// UploadPath copies localPath to remotePath, file or whole directory. The
// local path is checked before any network activity.
func (s *Session) UploadPath(localPath, remotePath string, obs upload.Observer) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return &deployerr.ArtifactNotFoundError{Path: localPath}
	}

	t, err := s.transport()
	if err != nil {
		return err
	}

	if info.IsDir() {
		return upload.Directory(t, localPath, remotePath, obs)
	}
	return upload.File(t, localPath, remotePath, obs)
}

func (s *Session) transport() (upload.Transport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, deployerr.ErrNotConnected
	}
	if s.sftp == nil {
		c, err := sftp.NewClient(s.conn)
		if err != nil {
			return nil, fmt.Errorf("start SFTP subsystem: %w", err)
		}
		s.sftp = c
	}
	return &sftpTransport{c: s.sftp}, nil
}

// Disconnect releases the connection. It is safe to call any number of
// times, including on a session that never connected.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sftp != nil {
		_ = s.sftp.Close()
		s.sftp = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}
