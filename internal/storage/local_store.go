package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps blobs on the local filesystem. Used for development and
// single-node deployments.
type LocalStore struct {
	dir string
}

func NewLocalStore(baseDir, container string) (*LocalStore, error) {
	dir := filepath.Join(baseDir, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Upload(ctx context.Context, name, _ string, data io.Reader, _ int64) (ref string, err error) {
	defer func(start time.Time) { observe("upload", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	localPath := filepath.Join(s.dir, name)
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, data); err != nil {
		os.Remove(localPath)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return "file://" + filepath.ToSlash(localPath), nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) (err error) {
	defer func(start time.Time) { observe("delete", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

func (s *LocalStore) Open(ctx context.Context, name string) (rc io.ReadCloser, err error) {
	defer func(start time.Time) { observe("open", start, err) }(time.Now())

	if err := ValidName(name); err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return file, nil
}
