package dto

import (
	"math"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/storage"
	"github.com/google/uuid"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize inside int32 so the offset never wraps.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// CreateReportForm is the non-file part of the multipart create request.
type CreateReportForm struct {
	UserID               *uuid.UUID `form:"user_id"`
	Title                string     `form:"title" validate:"required,min=3,max=500"`
	DescriptionText      string     `form:"description_text" validate:"required,min=10"`
	LocationRaw          string     `form:"location" validate:"required,max=2048"`
	CategoryID           string     `form:"category_id" validate:"report_category"`
	TranscribedVoiceText *string    `form:"transcribed_voice_text"`
	IsAnonymous          bool       `form:"is_anonymous"`
	HashedDeviceID       *string    `form:"hashed_device_id" validate:"omitempty,max=256"`
	TenantID             *string    `form:"tenant_id" validate:"omitempty,max=100"`
	ClientID             *string    `form:"client_id" validate:"omitempty,max=100"`
}

type StatusUpdateRequest struct {
	Status string  `json:"status" validate:"required,report_status"`
	Notes  *string `json:"notes" validate:"omitempty,max=4000"`
}

type AssignRequest struct {
	OfficerID string `json:"officer_id" validate:"required,uuid"`
}

type ReportFilter struct {
	Status     string `query:"status" validate:"omitempty,report_status"`
	CategoryID string `query:"category_id" validate:"omitempty,report_category"`
	Page       int    `query:"page"`
	PageSize   int    `query:"page_size"`
}

// Normalize clamps paging to sane bounds.
func (f *ReportFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

func (f *UserFilter) Normalize() {
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int64 `json:"total_pages"`
}

// NewPagination computes totalPages as ceil(total/pageSize); pageSize must
// be at least 1.
func NewPagination(total int64, page, pageSize int) Pagination {
	return Pagination{
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}

type AttachmentResponse struct {
	ID                uuid.UUID `json:"id"`
	ReportID          string    `json:"report_id"`
	BlobStorageURI    string    `json:"blob_storage_uri"`
	MimeType          string    `json:"mime_type"`
	FileType          string    `json:"file_type"`
	FileSizeBytes     int64     `json:"file_size_bytes"`
	CreatedAt         time.Time `json:"created_at"`
	DownloadURL       string    `json:"download_url,omitempty"`
	DownloadExpiresAt time.Time `json:"download_expires_at,omitempty"`
}

func NewAttachmentResponse(a *models.Attachment, handle *storage.DownloadHandle) AttachmentResponse {
	resp := AttachmentResponse{
		ID:             a.ID,
		ReportID:       a.ReportID,
		BlobStorageURI: a.BlobStorageURI,
		MimeType:       a.MimeType,
		FileType:       a.FileType,
		FileSizeBytes:  a.FileSizeBytes,
		CreatedAt:      a.CreatedAt,
	}
	if handle != nil {
		resp.DownloadURL = handle.URL
		resp.DownloadExpiresAt = handle.ExpiresAt
	}
	return resp
}

type ReportResponse struct {
	ID                   string               `json:"id"`
	UserID               *uuid.UUID           `json:"user_id"`
	Title                string               `json:"title"`
	DescriptionText      string               `json:"description_text"`
	LocationRaw          string               `json:"location"`
	CategoryID           string               `json:"category_id"`
	Status               string               `json:"status"`
	StatusNotes          *string              `json:"status_notes,omitempty"`
	AIConfidence         *float64             `json:"ai_confidence"`
	TranscribedVoiceText *string              `json:"transcribed_voice_text,omitempty"`
	AssignedOfficerID    *uuid.UUID           `json:"assigned_officer_id,omitempty"`
	TenantID             *string              `json:"tenant_id,omitempty"`
	ClientID             *string              `json:"client_id,omitempty"`
	IsAnonymous          bool                 `json:"is_anonymous"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	Attachments          []AttachmentResponse `json:"attachments"`
	ReportURL            string               `json:"report_url,omitempty"`
}

type ReportListResponse struct {
	Items      []ReportResponse `json:"items"`
	Pagination Pagination       `json:"pagination"`
}
