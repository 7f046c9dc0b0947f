package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/storage"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var ErrReportNotFound = errors.New("report not found")

// FileUpload is one attachment of a create request. Open is called once,
// from the upload goroutine.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// NewReport carries the validated report fields of a create request.
type NewReport struct {
	OwnerID              *uuid.UUID
	Title                string
	DescriptionText      string
	LocationRaw          string
	CategoryID           string
	TranscribedVoiceText *string
	IsAnonymous          bool
	HashedDeviceID       *string
	TenantID             *string
	ClientID             *string
}

type ReportServiceConfig struct {
	MaxUploadBytes     int64
	MaxParallelUploads int
	BlobTimeout        time.Duration
	DBTimeout          time.Duration
	PublicBaseURL      string
}

// ReportService owns the report lifecycle across the transactional store
// and the blob store. Authorization is the caller's job.
type ReportService struct {
	db     *gorm.DB
	store  storage.BlobStore
	signer *storage.URLSigner
	cfg    ReportServiceConfig
}

func NewReportService(db *gorm.DB, store storage.BlobStore, signer *storage.URLSigner, cfg ReportServiceConfig) *ReportService {
	if cfg.MaxParallelUploads < 1 {
		cfg.MaxParallelUploads = 1
	}
	return &ReportService{db: db, store: store, signer: signer, cfg: cfg}
}

func newReportID() string {
	return "R-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *ReportService) validate(in *NewReport, files []FileUpload) error {
	if len(files) == 0 {
		return apperr.Validation("at least one file is required")
	}
	if in.CategoryID == "" {
		in.CategoryID = models.CategoryOther
	}
	if !models.IsValidCategory(in.CategoryID) {
		return apperr.Validation("category_id must be one of: " + strings.Join(models.ReportCategories, ", "))
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(in.Title)); n < 3 || n > 500 {
		return apperr.Validation("title must be between 3 and 500 characters")
	}
	if utf8.RuneCountInString(strings.TrimSpace(in.DescriptionText)) < 10 {
		return apperr.Validation("description_text must be at least 10 characters")
	}
	if strings.TrimSpace(in.LocationRaw) == "" {
		return apperr.Validation("location is required")
	}
	for _, f := range files {
		if f.Size <= 0 {
			return apperr.Validation(fmt.Sprintf("file %q is empty", f.Filename))
		}
		if s.cfg.MaxUploadBytes > 0 && f.Size > s.cfg.MaxUploadBytes {
			return apperr.Validation(fmt.Sprintf("file %q exceeds the %d byte limit", f.Filename, s.cfg.MaxUploadBytes))
		}
	}
	return nil
}

// CreateReportWithAttachments uploads every file, then writes the report
// and its attachment rows in one transaction. Any failure deletes the blobs
// uploaded so far; nothing is persisted unless everything succeeded.
func (s *ReportService) CreateReportWithAttachments(ctx context.Context, in NewReport, files []FileUpload) (*models.Report, error) {
	if err := s.validate(&in, files); err != nil {
		return nil, err
	}
	if in.OwnerID != nil {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", *in.OwnerID).Count(&count).Error; err != nil {
			return nil, apperr.Dependency("failed to load report owner", err)
		}
		if count == 0 {
			return nil, apperr.Validation("user_id does not exist")
		}
	}

	report := models.Report{
		ID:                   newReportID(),
		UserID:               in.OwnerID,
		Title:                strings.TrimSpace(in.Title),
		DescriptionText:      strings.TrimSpace(in.DescriptionText),
		LocationRaw:          strings.TrimSpace(in.LocationRaw),
		CategoryID:           in.CategoryID,
		Status:               models.StatusSubmitted,
		TranscribedVoiceText: in.TranscribedVoiceText,
		IsAnonymous:          in.IsAnonymous,
		HashedDeviceID:       in.HashedDeviceID,
		TenantID:             in.TenantID,
		ClientID:             in.ClientID,
	}
	log := slog.With("report_id", report.ID)

	attachments, uploaded, err := s.uploadAll(ctx, report.ID, files)
	if err != nil {
		s.cleanupBlobs(ctx, report.ID, uploaded)
		metrics.ReportCreateFailures.WithLabelValues("upload").Inc()
		log.Error("attachment upload failed", "error", err, "uploaded", len(uploaded), "action", "create_report")
		return nil, apperr.Dependency("failed to upload attachments", err)
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	err = s.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Attachments", "User").Create(&report).Error; err != nil {
			return err
		}
		return tx.Create(&attachments).Error
	})
	if err != nil {
		s.cleanupBlobs(ctx, report.ID, uploaded)
		metrics.ReportCreateFailures.WithLabelValues("commit").Inc()
		log.Error("report commit failed", "error", err, "action", "create_report")
		return nil, apperr.Dependency("failed to save report", err)
	}

	report.Attachments = attachments
	metrics.ReportsCreated.Inc()
	log.Info("report created", "attachments", len(attachments), "category", report.CategoryID)
	return &report, nil
}

// uploadAll runs the uploads concurrently. It always returns the names of
// the blobs that reached the store, even on failure.
func (s *ReportService) uploadAll(ctx context.Context, reportID string, files []FileUpload) ([]models.Attachment, []string, error) {
	var (
		mu       sync.Mutex
		uploaded []string
	)
	attachments := make([]models.Attachment, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallelUploads)
	for i := range files {
		f := files[i]
		i := i
		g.Go(func() error {
			name := storage.NewBlobName(f.Filename)
			ref, err := s.upload(gctx, name, f)
			if err != nil {
				return fmt.Errorf("upload %q: %w", f.Filename, err)
			}

			mu.Lock()
			uploaded = append(uploaded, name)
			mu.Unlock()

			contentType := f.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			attachments[i] = models.Attachment{
				ID:             uuid.New(),
				ReportID:       reportID,
				BlobStorageURI: ref,
				MimeType:       contentType,
				FileType:       models.ClassifyMime(contentType),
				FileSizeBytes:  f.Size,
			}
			return nil
		})
	}
	err := g.Wait()

	mu.Lock()
	defer mu.Unlock()
	return attachments, append([]string(nil), uploaded...), err
}

func (s *ReportService) upload(ctx context.Context, name string, f FileUpload) (string, error) {
	if s.cfg.BlobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BlobTimeout)
		defer cancel()
	}
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.store.Upload(ctx, name, f.ContentType, rc, f.Size)
}

// cleanupBlobs is best-effort: blobs it cannot delete are logged as orphans
// and left for manual cleanup.
func (s *ReportService) cleanupBlobs(ctx context.Context, reportID string, names []string) {
	for _, name := range names {
		s.deleteBlob(ctx, reportID, name)
	}
}

func (s *ReportService) deleteBlob(ctx context.Context, reportID, name string) {
	ctx = context.WithoutCancel(ctx)
	if s.cfg.BlobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.BlobTimeout)
		defer cancel()
	}
	err := s.store.Delete(ctx, name)
	if err == nil || errors.Is(err, storage.ErrBlobNotFound) {
		return
	}
	metrics.OrphanedBlobs.Inc()
	slog.Error("blob delete failed, blob orphaned",
		"report_id", reportID,
		"blob_ref", name,
		"action", "delete_blob",
		"error", err,
	)
}

func (s *ReportService) dbContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.DBTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.DBTimeout)
	}
	return context.WithCancel(ctx)
}

// GetReport loads a report with its attachments, oldest first.
func (s *ReportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("attachments.created_at ASC") }).
		First(&report, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "report not found", ErrReportNotFound)
		}
		return nil, apperr.Dependency("failed to load report", err)
	}
	return &report, nil
}

// ListReports returns the page of reports the actor may see, newest first.
// ownerID narrows the result to one user's reports.
func (s *ReportService) ListReports(ctx context.Context, actor authz.Actor, filter dto.ReportFilter, ownerID *uuid.UUID) ([]models.Report, dto.Pagination, error) {
	filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.Report{}).Scopes(tenant.ReportsVisibleTo(actor))
	if ownerID != nil {
		query = query.Where("reports.user_id = ?", *ownerID)
	}
	if filter.Status != "" {
		query = query.Where("reports.status = ?", filter.Status)
	}
	if filter.CategoryID != "" {
		query = query.Where("reports.category_id = ?", filter.CategoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, dto.Pagination{}, apperr.Dependency("failed to count reports", err)
	}

	var reports []models.Report
	err := query.
		Preload("Attachments", func(db *gorm.DB) *gorm.DB { return db.Order("attachments.created_at ASC") }).
		Order("reports.created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&reports).Error
	if err != nil {
		return nil, dto.Pagination{}, apperr.Dependency("failed to list reports", err)
	}
	return reports, dto.NewPagination(total, filter.Page, filter.PageSize), nil
}

// UpdateStatus sets a new status. A non-empty expectedStatus makes the
// update conditional on the current status, so a citizen cannot race an
// officer who moved the report on.
func (s *ReportService) UpdateStatus(ctx context.Context, id, status string, notes *string, expectedStatus string) (*models.Report, error) {
	if !models.IsValidStatus(status) {
		return nil, apperr.Validation("status must be one of: " + strings.Join(models.ReportStatuses, ", "))
	}

	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if notes != nil {
		updates["status_notes"] = *notes
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	query := s.db.WithContext(dbCtx).Model(&models.Report{}).Where("id = ?", id)
	if expectedStatus != "" {
		query = query.Where("status = ?", expectedStatus)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, apperr.Dependency("failed to update report status", result.Error)
	}
	if result.RowsAffected == 0 {
		current, err := s.GetReport(ctx, id)
		if err != nil {
			return nil, err
		}
		if expectedStatus == "" {
			return current, nil
		}
		return nil, apperr.Forbidden(fmt.Sprintf("report is no longer %s (now %s)", expectedStatus, current.Status))
	}

	slog.Info("report status updated", "report_id", id, "status", status)
	return s.GetReport(ctx, id)
}

// AssignOfficer routes a report to an active officer. A report still in
// SUBMITTED moves to ASSIGNED.
func (s *ReportService) AssignOfficer(ctx context.Context, report *models.Report, officerID uuid.UUID) (*models.Report, error) {
	var officer models.User
	if err := s.db.WithContext(ctx).First(&officer, "id = ?", officerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Validation("officer does not exist")
		}
		return nil, apperr.Dependency("failed to load officer", err)
	}
	if officer.Role != authz.RoleOfficer || !officer.IsActive {
		return nil, apperr.Validation("assignee must be an active officer")
	}
	if !authz.TenantAccess(report.TenantID, officer.TenantID, officer.Role) {
		return nil, apperr.Validation("officer belongs to another organization")
	}

	updates := map[string]interface{}{
		"assigned_officer_id": officer.ID,
		"updated_at":          time.Now(),
	}
	if report.Status == models.StatusSubmitted {
		updates["status"] = models.StatusAssigned
	}
	if report.ClientID == nil && officer.ClientID != nil {
		updates["client_id"] = *officer.ClientID
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	if err := s.db.WithContext(dbCtx).Model(&models.Report{}).Where("id = ?", report.ID).Updates(updates).Error; err != nil {
		return nil, apperr.Dependency("failed to assign report", err)
	}
	slog.Info("report assigned", "report_id", report.ID, "officer_id", officer.ID.String())
	return s.GetReport(ctx, report.ID)
}

// DeleteReport removes the blobs, then the rows. A blob that cannot be
// deleted is logged and does not block the row deletion. Returns false when
// the report does not exist.
func (s *ReportService) DeleteReport(ctx context.Context, id string) (bool, error) {
	report, err := s.GetReport(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}

	for _, a := range report.Attachments {
		s.deleteBlob(ctx, report.ID, storage.BlobName(a.BlobStorageURI))
	}

	dbCtx, cancel := s.dbContext(ctx)
	defer cancel()
	err = s.db.WithContext(dbCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", report.ID).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Report{}, "id = ?", report.ID).Error
	})
	if err != nil {
		slog.Error("report delete failed after blob removal", "report_id", report.ID, "error", err, "action", "delete_report")
		return true, apperr.Dependency("failed to delete report", err)
	}
	slog.Info("report deleted", "report_id", report.ID, "attachments", len(report.Attachments))
	return true, nil
}

// Present renders a report for the actor with freshly minted download
// handles. The owner of an anonymous report is only shown to that owner
// and to admins.
func (s *ReportService) Present(actor authz.Actor, r *models.Report) dto.ReportResponse {
	resp := dto.ReportResponse{
		ID:                   r.ID,
		UserID:               r.UserID,
		Title:                r.Title,
		DescriptionText:      r.DescriptionText,
		LocationRaw:          r.LocationRaw,
		CategoryID:           r.CategoryID,
		Status:               r.Status,
		StatusNotes:          r.StatusNotes,
		AIConfidence:         r.AIConfidence,
		TranscribedVoiceText: r.TranscribedVoiceText,
		AssignedOfficerID:    r.AssignedOfficerID,
		TenantID:             r.TenantID,
		ClientID:             r.ClientID,
		IsAnonymous:          r.IsAnonymous,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Attachments:          s.PresentAttachments(r.Attachments),
		ReportURL:            s.cfg.PublicBaseURL + "/api/v1/reports/" + r.ID,
	}
	if r.IsAnonymous && actor.Role != authz.RoleAdmin && (r.UserID == nil || *r.UserID != actor.ID) {
		resp.UserID = nil
	}
	return resp
}

func (s *ReportService) PresentAttachments(attachments []models.Attachment) []dto.AttachmentResponse {
	out := make([]dto.AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		a := &attachments[i]
		handle, err := s.signer.Generate(a.BlobStorageURI)
		if err != nil {
			slog.Warn("failed to sign download handle", "attachment_id", a.ID.String(), "error", err)
			out = append(out, dto.NewAttachmentResponse(a, nil))
			continue
		}
		out = append(out, dto.NewAttachmentResponse(a, &handle))
	}
	return out
}

// OpenBlob streams a blob named by a verified download handle.
func (s *ReportService) OpenBlob(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.store.Open(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) || errors.Is(err, storage.ErrInvalidName) {
			return nil, apperr.NotFound("file not found")
		}
		return nil, apperr.Dependency("failed to open file", err)
	}
	return rc, nil
}
