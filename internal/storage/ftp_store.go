package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPStore keeps blobs in one directory (the container) on an FTP server.
// A control connection is not safe for concurrent transfers, so every
// operation dials its own.
type FTPStore struct {
	host      string
	port      string
	user      string
	password  string
	container string
	timeout   time.Duration
}

func NewFTPStore(host, port, user, password, container string, timeout time.Duration) *FTPStore {
	return &FTPStore{
		host:      host,
		port:      port,
		user:      user,
		password:  password,
		container: container,
		timeout:   timeout,
	}
}

func (s *FTPStore) connect(ctx context.Context) (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(s.host+":"+s.port,
		ftp.DialWithTimeout(s.timeout),
		ftp.DialWithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to FTP: %w", err)
	}
	if err := conn.Login(s.user, s.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("failed to login to FTP: %w", err)
	}
	return conn, nil
}

func (s *FTPStore) remotePath(name string) string {
	return s.container + "/" + name
}

// EnsureContainer creates the container directory if it is missing.
func (s *FTPStore) EnsureContainer(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.ChangeDir(s.container); err == nil {
		return nil
	}
	if err := conn.MakeDir(s.container); err != nil {
		return fmt.Errorf("failed to create container %s: %w", s.container, err)
	}
	return nil
}

func (s *FTPStore) Upload(ctx context.Context, name, _ string, data io.Reader, _ int64) (ref string, err error) {
	defer func(start time.Time) { observe("upload", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return "", err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	if err := conn.Stor(s.remotePath(name), data); err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}
	return fmt.Sprintf("ftp://%s/%s", s.host, s.remotePath(name)), nil
}

func (s *FTPStore) Delete(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Quit()

	if err := conn.Delete(s.remotePath(name)); err != nil {
		if isFileUnavailable(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *FTPStore) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { observe("open", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return nil, err
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(s.remotePath(name))
	if err != nil {
		conn.Quit()
		if isFileUnavailable(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}
	return &ftpReader{resp: resp, conn: conn}, nil
}

// ftpReader closes the data connection before quitting the control one.
type ftpReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReader) Read(p []byte) (int, error) { return r.resp.Read(p) }

func (r *ftpReader) Close() error {
	err := r.resp.Close()
	if qerr := r.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

func isFileUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
