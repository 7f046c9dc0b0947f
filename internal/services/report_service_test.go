package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestCreateReportWithAttachments(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, strPtr("moi"), nil)

	report, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("photo.JPG", "image/jpeg", "jpeg-bytes"),
		upload("note.m4a", "audio/mp4", "audio-bytes"),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.ID, "R-"))
	assert.Len(t, report.ID, 10)
	assert.Equal(t, models.StatusSubmitted, report.Status)
	assert.Len(t, report.Attachments, 2)
	assert.Equal(t, 2, store.count())

	loaded, err := svc.GetReport(context.Background(), report.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Attachments, 2)
	for _, a := range loaded.Attachments {
		assert.Equal(t, report.ID, a.ReportID)
		assert.True(t, strings.HasPrefix(a.BlobStorageURI, "mem://attachments/"))
		assert.Positive(t, a.FileSizeBytes)
	}

	types := map[string]string{}
	for _, a := range loaded.Attachments {
		types[a.MimeType] = a.FileType
	}
	assert.Equal(t, models.FileTypeImage, types["image/jpeg"])
	assert.Equal(t, models.FileTypeAudio, types["audio/mp4"])
}

func TestCreateReportWithAttachments_ValidationBeforeSideEffects(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	tests := []struct {
		name   string
		mutate func(*NewReport)
		files  []FileUpload
	}{
		{"no files", nil, nil},
		{"short title", func(in *NewReport) { in.Title = "ab" }, []FileUpload{upload("a.jpg", "image/jpeg", "x")}},
		{"short description", func(in *NewReport) { in.DescriptionText = "short" }, []FileUpload{upload("a.jpg", "image/jpeg", "x")}},
		{"missing location", func(in *NewReport) { in.LocationRaw = " " }, []FileUpload{upload("a.jpg", "image/jpeg", "x")}},
		{"unknown category", func(in *NewReport) { in.CategoryID = "weather" }, []FileUpload{upload("a.jpg", "image/jpeg", "x")}},
		{"empty file", nil, []FileUpload{upload("a.jpg", "image/jpeg", "")}},
		{"oversized file", nil, []FileUpload{{Filename: "big.mp4", ContentType: "video/mp4", Size: 2 << 20}}},
		{"unknown owner", func(in *NewReport) { id := uuid.New(); in.OwnerID = &id }, []FileUpload{upload("a.jpg", "image/jpeg", "x")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validReport(citizen)
			if tt.mutate != nil {
				tt.mutate(&in)
			}
			_, err := svc.CreateReportWithAttachments(context.Background(), in, tt.files)
			assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
		})
	}

	assert.Zero(t, store.count())
	assert.Empty(t, store.deleted)
	assert.Zero(t, countRows(t, db, &models.Report{}))
}

func TestCreateReportWithAttachments_DefaultsCategory(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	in := validReport(citizen)
	in.CategoryID = ""
	report, err := svc.CreateReportWithAttachments(context.Background(), in, []FileUpload{upload("a.png", "image/png", "png")})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryOther, report.CategoryID)
}

func TestCreateReportWithAttachments_UploadFailureCleansUp(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	_, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("one.jpg", "image/jpeg", "first"),
		upload("two.jpg", "image/jpeg", "boom"),
		upload("three.jpg", "image/jpeg", "third"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDependencyFailure))

	assert.Zero(t, store.count(), "every uploaded blob must be removed")
	assert.NotEmpty(t, store.deleted)
	assert.Zero(t, countRows(t, db, &models.Report{}))
	assert.Zero(t, countRows(t, db, &models.Attachment{}))
}

func TestCreateReportWithAttachments_AttachmentInsertFailureRollsBack(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	require.NoError(t, db.Migrator().DropTable(&models.Attachment{}))

	_, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("one.jpg", "image/jpeg", "first"),
		upload("two.jpg", "image/jpeg", "second"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDependencyFailure))

	assert.Zero(t, store.count())
	assert.Len(t, store.deleted, 2)
	assert.Zero(t, countRows(t, db, &models.Report{}), "report row must roll back with its attachments")
}

func TestCreateReportWithAttachments_BeginFailureCleansUp(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	store := newMemStore()
	svc := newTestReportService(db, store)

	in := NewReport{
		Title:           "Water main leak",
		DescriptionText: "Water has been pouring onto the road since morning.",
		LocationRaw:     "Downtown",
		CategoryID:      models.CategoryUtilities,
	}
	_, err = svc.CreateReportWithAttachments(context.Background(), in, []FileUpload{
		upload("a.jpg", "image/jpeg", "a"),
		upload("b.jpg", "image/jpeg", "b"),
		upload("c.mp4", "video/mp4", "c"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDependencyFailure))
	assert.Zero(t, store.count())
	assert.Len(t, store.deleted, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReportWithAttachments_OrphanedBlobDoesNotMaskError(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	store.deleteErr = errors.New("blob store offline")
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	_, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("one.jpg", "image/jpeg", "first"),
		upload("two.jpg", "image/jpeg", "boom"),
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDependencyFailure))
	assert.Zero(t, countRows(t, db, &models.Report{}))
}

func TestPresent_FreshHandlesPerRead(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	report, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("a.jpg", "image/jpeg", "a"),
		upload("b.jpg", "image/jpeg", "b"),
	})
	require.NoError(t, err)

	first := svc.Present(actorOf(citizen), report)
	second := svc.Present(actorOf(citizen), report)

	require.Len(t, first.Attachments, 2)
	assert.Equal(t, "http://reports.test/api/v1/reports/"+report.ID, first.ReportURL)
	assert.NotEqual(t, first.Attachments[0].DownloadURL, first.Attachments[1].DownloadURL)
	assert.NotEqual(t, first.Attachments[0].DownloadURL, second.Attachments[0].DownloadURL)
	for _, a := range first.Attachments {
		assert.True(t, strings.HasPrefix(a.DownloadURL, "http://reports.test/api/v1/files/"))
		assert.Contains(t, a.DownloadURL, "?token=")
	}
}

func TestPresent_RedactsAnonymousOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	citizen := createUser(t, db, authz.RoleCitizen, strPtr("moi"), nil)
	supervisor := createUser(t, db, authz.RoleSupervisor, strPtr("moi"), nil)
	admin := createUser(t, db, authz.RoleAdmin, nil, nil)

	in := validReport(citizen)
	in.IsAnonymous = true
	report, err := svc.CreateReportWithAttachments(context.Background(), in, []FileUpload{upload("a.jpg", "image/jpeg", "a")})
	require.NoError(t, err)

	assert.NotNil(t, svc.Present(actorOf(citizen), report).UserID)
	assert.NotNil(t, svc.Present(actorOf(admin), report).UserID)
	assert.Nil(t, svc.Present(actorOf(supervisor), report).UserID)
}

func TestDeleteReport(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	report, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{
		upload("a.jpg", "image/jpeg", "a"),
		upload("b.jpg", "image/jpeg", "b"),
	})
	require.NoError(t, err)

	found, err := svc.DeleteReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, store.count())
	assert.Zero(t, countRows(t, db, &models.Attachment{}))

	_, err = svc.GetReport(context.Background(), report.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	found, err = svc.DeleteReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDeleteReport_BlobFailureStillRemovesRows(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	report, err := svc.CreateReportWithAttachments(context.Background(), validReport(citizen), []FileUpload{upload("a.jpg", "image/jpeg", "a")})
	require.NoError(t, err)

	store.deleteErr = errors.New("blob store offline")
	found, err := svc.DeleteReport(context.Background(), report.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, countRows(t, db, &models.Report{}))
}

func TestListReports_Scope(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	ctx := context.Background()

	alice := createUser(t, db, authz.RoleCitizen, strPtr("moi"), strPtr("cairo"))
	bob := createUser(t, db, authz.RoleCitizen, strPtr("moh"), strPtr("alex"))
	officer := createUser(t, db, authz.RoleOfficer, strPtr("moi"), strPtr("cairo"))
	supervisor := createUser(t, db, authz.RoleSupervisor, strPtr("moi"), nil)
	admin := createUser(t, db, authz.RoleAdmin, nil, nil)

	for _, owner := range []*models.User{alice, bob} {
		_, err := svc.CreateReportWithAttachments(ctx, validReport(owner), []FileUpload{upload("a.jpg", "image/jpeg", "a")})
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		actor authz.Actor
		want  int64
	}{
		{"citizen sees own", actorOf(alice), 1},
		{"officer sees department", actorOf(officer), 1},
		{"supervisor sees organization", actorOf(supervisor), 1},
		{"admin sees all", actorOf(admin), 2},
		{"unknown role sees nothing", authz.Actor{ID: alice.ID, Role: authz.Role("GUEST")}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reports, page, err := svc.ListReports(ctx, tt.actor, dto.ReportFilter{}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, page.Total)
			assert.Len(t, reports, int(tt.want))
			for i := range reports {
				assert.True(t, authz.CanViewReport(tt.actor, scopeFor(&reports[i])))
			}
		})
	}

	t.Run("owner filter", func(t *testing.T) {
		_, page, err := svc.ListReports(ctx, actorOf(admin), dto.ReportFilter{}, &bob.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("pagination", func(t *testing.T) {
		reports, page, err := svc.ListReports(ctx, actorOf(admin), dto.ReportFilter{Page: 2, PageSize: 1}, nil)
		require.NoError(t, err)
		assert.Len(t, reports, 1)
		assert.Equal(t, int64(2), page.Total)
		assert.Equal(t, int64(2), page.TotalPages)
	})

	t.Run("huge page is past the end", func(t *testing.T) {
		reports, page, err := svc.ListReports(ctx, actorOf(admin), dto.ReportFilter{Page: math.MaxInt, PageSize: 1}, nil)
		require.NoError(t, err)
		assert.Empty(t, reports)
		assert.Equal(t, dto.MaxPage, page.Page)
	})
}

func scopeFor(r *models.Report) authz.ReportScope {
	return authz.ReportScope{
		OwnerID:           r.UserID,
		AssignedOfficerID: r.AssignedOfficerID,
		TenantID:          r.TenantID,
		ClientID:          r.ClientID,
		Status:            r.Status,
	}
}

func TestUpdateStatus_ConditionalOnExpected(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	ctx := context.Background()
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	report, err := svc.CreateReportWithAttachments(ctx, validReport(citizen), []FileUpload{upload("a.jpg", "image/jpeg", "a")})
	require.NoError(t, err)

	notes := "crew dispatched"
	updated, err := svc.UpdateStatus(ctx, report.ID, models.StatusInProgress, &notes, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, updated.Status)
	require.NotNil(t, updated.StatusNotes)
	assert.Equal(t, notes, *updated.StatusNotes)

	_, err = svc.UpdateStatus(ctx, report.ID, models.StatusRejected, nil, models.StatusSubmitted)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	current, err := svc.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, current.Status)

	_, err = svc.UpdateStatus(ctx, report.ID, "DONE", nil, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.UpdateStatus(ctx, "R-MISSING0", models.StatusResolved, nil, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestAssignOfficer(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestReportService(db, newMemStore())
	ctx := context.Background()
	citizen := createUser(t, db, authz.RoleCitizen, strPtr("moi"), nil)
	officer := createUser(t, db, authz.RoleOfficer, strPtr("moi"), strPtr("cairo"))
	foreign := createUser(t, db, authz.RoleOfficer, strPtr("moh"), strPtr("alex"))

	report, err := svc.CreateReportWithAttachments(ctx, validReport(citizen), []FileUpload{upload("a.jpg", "image/jpeg", "a")})
	require.NoError(t, err)

	_, err = svc.AssignOfficer(ctx, report, citizen.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.AssignOfficer(ctx, report, foreign.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assigned, err := svc.AssignOfficer(ctx, report, officer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, assigned.Status)
	require.NotNil(t, assigned.AssignedOfficerID)
	assert.Equal(t, officer.ID, *assigned.AssignedOfficerID)
	require.NotNil(t, assigned.ClientID)
	assert.Equal(t, "cairo", *assigned.ClientID)

	assert.True(t, authz.CanViewReport(actorOf(officer), scopeFor(assigned)))
}

func TestOpenBlob(t *testing.T) {
	db := setupTestDB(t)
	store := newMemStore()
	svc := newTestReportService(db, store)
	store.blobs["abc.jpg"] = []byte("image")

	rc, err := svc.OpenBlob(context.Background(), "abc.jpg")
	require.NoError(t, err)
	rc.Close()

	_, err = svc.OpenBlob(context.Background(), "missing.jpg")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
