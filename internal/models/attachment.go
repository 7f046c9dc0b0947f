package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	FileTypeImage    = "image"
	FileTypeVideo    = "video"
	FileTypeAudio    = "audio"
	FileTypeDocument = "document"
)

// Attachment is immutable once written; only deletion changes it.
type Attachment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReportID       string    `gorm:"size:32;not null;index" json:"report_id"`
	BlobStorageURI string    `gorm:"size:2048;not null" json:"blob_storage_uri"`
	MimeType       string    `gorm:"size:100;not null" json:"mime_type"`
	FileType       string    `gorm:"size:50;not null" json:"file_type"`
	FileSizeBytes  int64     `gorm:"not null;check:chk_attachments_file_size,file_size_bytes > 0" json:"file_size_bytes"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Attachment) TableName() string {
	return "attachments"
}

// ClassifyMime derives the coarse file type from a declared MIME type.
func ClassifyMime(mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mt, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mt, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mt, "audio/"):
		return FileTypeAudio
	default:
		return FileTypeDocument
	}
}
