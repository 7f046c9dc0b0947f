// Package storage keeps attachment bytes outside the transactional store
// and mints the signed handles used to download them.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/google/uuid"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrInvalidName  = errors.New("invalid blob name")
)

// BlobStore is the backing store for attachment bytes. Upload returns the
// reference URI persisted on the attachment row; every other operation is
// keyed by the blob name, the last segment of that URI.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, data io.Reader, size int64) (string, error)
	Delete(ctx context.Context, name string) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewBlobName returns a collision-resistant name that keeps the original
// file extension.
func NewBlobName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return uuid.NewString() + ext
}

// BlobName extracts the blob name from a stored reference URI.
func BlobName(ref string) string {
	return path.Base(ref)
}

// ValidName rejects anything that could escape the container.
func ValidName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return ErrInvalidName
	}
	return nil
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.BlobOperations.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
