package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusSubmitted  = "SUBMITTED"
	StatusAssigned   = "ASSIGNED"
	StatusInProgress = "IN_PROGRESS"
	StatusResolved   = "RESOLVED"
	StatusRejected   = "REJECTED"
)

// ReportStatuses lists every status in lifecycle order. Transitions between
// them are not restricted.
var ReportStatuses = []string{
	StatusSubmitted,
	StatusAssigned,
	StatusInProgress,
	StatusResolved,
	StatusRejected,
}

const (
	CategoryInfrastructure = "infrastructure"
	CategoryUtilities      = "utilities"
	CategoryCrime          = "crime"
	CategoryTraffic        = "traffic"
	CategoryPublicNuisance = "public_nuisance"
	CategoryEnvironmental  = "environmental"
	CategoryOther          = "other"
)

var ReportCategories = []string{
	CategoryInfrastructure,
	CategoryUtilities,
	CategoryCrime,
	CategoryTraffic,
	CategoryPublicNuisance,
	CategoryEnvironmental,
	CategoryOther,
}

func IsValidStatus(s string) bool {
	for _, v := range ReportStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func IsValidCategory(c string) bool {
	for _, v := range ReportCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Report is a citizen incident report. ID is a short human-legible token
// such as R-1A2B3C4D.
type Report struct {
	ID                   string       `gorm:"size:32;primaryKey" json:"id"`
	UserID               *uuid.UUID   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Title                string       `gorm:"size:500;not null" json:"title"`
	DescriptionText      string       `gorm:"type:text;not null" json:"description_text"`
	LocationRaw          string       `gorm:"size:2048" json:"location"`
	CategoryID           string       `gorm:"size:100;not null;index" json:"category_id"`
	Status               string       `gorm:"size:50;not null;index" json:"status"`
	AIConfidence         *float64     `gorm:"check:chk_reports_ai_confidence,ai_confidence >= 0 AND ai_confidence <= 1" json:"ai_confidence"`
	TranscribedVoiceText *string      `gorm:"type:text" json:"transcribed_voice_text,omitempty"`
	AssignedOfficerID    *uuid.UUID   `gorm:"type:uuid;index" json:"assigned_officer_id,omitempty"`
	TenantID             *string      `gorm:"size:100;index" json:"tenant_id,omitempty"`
	ClientID             *string      `gorm:"size:100;index" json:"client_id,omitempty"`
	IsAnonymous          bool         `gorm:"not null" json:"is_anonymous"`
	HashedDeviceID       *string      `gorm:"size:256" json:"-"`
	StatusNotes          *string      `gorm:"type:text" json:"status_notes,omitempty"`
	CreatedAt            time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
	Attachments          []Attachment `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"attachments"`
	User                 *User        `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}
