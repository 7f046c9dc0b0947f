package models

import "time"

// FactReport is a row of the read-optimized analytics tables. The hot and
// cold partitions share these columns; the cold one may omit the free-text
// ones, so aggregate queries only touch the shared subset. The table name is
// chosen per query.
type FactReport struct {
	ReportID             string    `gorm:"column:report_id;primaryKey"`
	Title                string    `gorm:"column:title"`
	DescriptionText      string    `gorm:"column:description_text"`
	LocationRaw          *string   `gorm:"column:location_raw"`
	Status               string    `gorm:"column:status"`
	CategoryID           string    `gorm:"column:category_id"`
	AIConfidence         *float64  `gorm:"column:ai_confidence"`
	CreatedAt            time.Time `gorm:"column:created_at"`
	UpdatedAt            time.Time `gorm:"column:updated_at"`
	UserID               *string   `gorm:"column:user_id"`
	UserRole             *string   `gorm:"column:user_role"`
	IsAnonymous          *bool     `gorm:"column:is_anonymous"`
	AttachmentCount      int       `gorm:"column:attachment_count"`
	TranscribedVoiceText *string   `gorm:"column:transcribed_voice_text"`
	ExtractedAt          time.Time `gorm:"column:extracted_at"`
}
