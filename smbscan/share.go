package smbscan

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"bitbucket.org/wescanlabs/corescan_backend/config"
	"github.com/hirochachacha/go-smb2"
)

// Session is the slice of the remote file protocol the reader needs. All
// failures are ordinary errors, distinguishable from an empty directory.
type Session interface {
	ReadDir(path string) ([]os.FileInfo, error)
	// ReadFile reads at most maxLen bytes from the start of the file.
	ReadFile(path string, maxLen int) ([]byte, error)
	Close() error
}

// Dialer establishes one authenticated session per scan pass.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// SMBDialer connects to the scanner share over SMB2/3. Sessions it hands out
// honor the context deadline on every operation, so a hung share cannot stall
// a pass past its timeout.
type SMBDialer struct {
	Config config.SMBConfig
}

func (d *SMBDialer) Dial(ctx context.Context) (Session, error) {
	cfg := d.Config
	if cfg.Username == "" || cfg.Password == "" {
		// Refuse to dial without credentials: an anonymous/guest session
		// would silently scan with the wrong identity.
		return nil, errors.New("smb credentials not configured")
	}

	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))
	conn, err := (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	smbDialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     cfg.Username,
			Password: cfg.Password,
			Domain:   cfg.Domain,
		},
	}
	sess, err := smbDialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	fs, err := sess.Mount(cfg.Share)
	if err != nil {
		_ = sess.Logoff()
		conn.Close()
		return nil, err
	}

	return &smbSession{
		conn: conn,
		sess: sess,
		fs:   fs.WithContext(ctx),
	}, nil
}

type smbSession struct {
	conn net.Conn
	sess *smb2.Session
	fs   *smb2.Share
}

func (s *smbSession) ReadDir(path string) ([]os.FileInfo, error) {
	return s.fs.ReadDir(toSharePath(path))
}

func (s *smbSession) ReadFile(path string, maxLen int) ([]byte, error) {
	f, err := s.fs.Open(toSharePath(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, maxLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}

func (s *smbSession) Close() error {
	err := s.fs.Umount()
	if logoffErr := s.sess.Logoff(); err == nil {
		err = logoffErr
	}
	if closeErr := s.conn.Close(); err == nil {
		err = closeErr
	}
	return err
}

// JoinPath builds a share-relative path from segments, tolerating stray
// separators in either style.
func JoinPath(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Trim(p, `\/`)
		if p != "" {
			cleaned = append(cleaned, p)
		}
	}
	return strings.Join(cleaned, "/")
}

// toSharePath converts a forward-slash path to the backslash form SMB wants.
func toSharePath(path string) string {
	return strings.ReplaceAll(JoinPath(path), "/", `\`)
}
