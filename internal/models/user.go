package models

import (
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrMissingContact = errors.New("non-anonymous users need an email or phone number")

// User is a citizen or staff account. TenantID scopes supervisors to an
// organization, ClientID scopes officers to a department.
type User struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PasswordHash   string     `gorm:"size:256" json:"-"`
	Role           authz.Role `gorm:"size:20;not null;index" json:"role"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	Email          *string    `gorm:"size:256;uniqueIndex" json:"email,omitempty"`
	PhoneNumber    *string    `gorm:"size:20" json:"phone_number,omitempty"`
	IsAnonymous    bool       `gorm:"not null" json:"is_anonymous"`
	HashedDeviceID *string    `gorm:"size:256" json:"-"`
	TenantID       *string    `gorm:"size:100;index" json:"tenant_id,omitempty"`
	ClientID       *string    `gorm:"size:100;index" json:"client_id,omitempty"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// HasContact reports whether the contact invariant holds.
func (u *User) HasContact() bool {
	if u.IsAnonymous {
		return true
	}
	return (u.Email != nil && *u.Email != "") || (u.PhoneNumber != nil && *u.PhoneNumber != "")
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if !u.HasContact() {
		return ErrMissingContact
	}
	return nil
}
