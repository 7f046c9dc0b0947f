package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Every connection to :memory: is a separate database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func createUser(t *testing.T, db *gorm.DB, role authz.Role, tenantID, clientID *string) *models.User {
	t.Helper()
	email := strings.ToLower(string(role)) + "-" + uuid.NewString()[:8] + "@example.com"
	user := &models.User{
		Role:     role,
		IsActive: true,
		Email:    &email,
		TenantID: tenantID,
		ClientID: clientID,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func actorOf(u *models.User) authz.Actor {
	return authz.Actor{ID: u.ID, Role: u.Role, TenantID: u.TenantID, ClientID: u.ClientID}
}

// memStore is an in-memory BlobStore. Uploads whose content equals failOn
// are rejected; deleteErr makes every delete fail.
type memStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	deleted   []string
	failOn    string
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, failOn: "boom"}
}

func (s *memStore) Upload(ctx context.Context, name, _ string, data io.Reader, _ int64) (string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	if string(b) == s.failOn {
		return "", errors.New("blob store rejected upload")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = b
	return "mem://attachments/" + name, nil
}

func (s *memStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, name)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.blobs[name]; !ok {
		return storage.ErrBlobNotFound
	}
	delete(s.blobs, name)
	return nil
}

func (s *memStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[name]
	if !ok {
		return nil, storage.ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

func newTestReportService(db *gorm.DB, store storage.BlobStore) *ReportService {
	signer := storage.NewURLSigner([]byte("test-signing-key"), "http://reports.test", time.Hour)
	return NewReportService(db, store, signer, ReportServiceConfig{
		MaxUploadBytes:     1 << 20,
		MaxParallelUploads: 2,
		BlobTimeout:        5 * time.Second,
		DBTimeout:          5 * time.Second,
		PublicBaseURL:      "http://reports.test",
	})
}

func upload(name, contentType, content string) FileUpload {
	return FileUpload{
		Filename:    name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func validReport(owner *models.User) NewReport {
	in := NewReport{
		Title:           "Broken streetlight",
		DescriptionText: "The streetlight on the corner has been out for a week.",
		LocationRaw:     "30.0444,31.2357",
		CategoryID:      models.CategoryInfrastructure,
		TenantID:        owner.TenantID,
		ClientID:        owner.ClientID,
	}
	id := owner.ID
	in.OwnerID = &id
	return in
}
