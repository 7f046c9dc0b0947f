package dto

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email          *string `json:"email" validate:"omitempty,email,max=256"`
	PhoneNumber    *string `json:"phone_number" validate:"omitempty,min=5,max=20"`
	Password       string  `json:"password" validate:"required,min=8,max=128"`
	Role           string  `json:"role" validate:"omitempty,role"`
	IsAnonymous    bool    `json:"is_anonymous"`
	HashedDeviceID *string `json:"hashed_device_id" validate:"omitempty,max=256"`
	TenantID       *string `json:"tenant_id" validate:"omitempty,max=100"`
	ClientID       *string `json:"client_id" validate:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	UserID       uuid.UUID    `json:"user_id"`
	Role         authz.Role   `json:"role"`
	User         UserResponse `json:"user"`
}

type PasswordResetResponse struct {
	Message string `json:"message"`
	// Token is only populated in debug mode; email delivery is not built.
	Token string `json:"token,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type UserResponse struct {
	ID          uuid.UUID         `json:"id"`
	Email       *string           `json:"email,omitempty"`
	PhoneNumber *string           `json:"phone_number,omitempty"`
	Role        authz.Role        `json:"role"`
	IsActive    bool              `json:"is_active"`
	IsAnonymous bool              `json:"is_anonymous"`
	TenantID    *string           `json:"tenant_id,omitempty"`
	ClientID    *string           `json:"client_id,omitempty"`
	Authorities []authz.Authority `json:"authorities,omitempty"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsAnonymous: u.IsAnonymous,
		TenantID:    u.TenantID,
		ClientID:    u.ClientID,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	DB            string `json:"db"`
	AnalyticsDB   string `json:"analytics_db"`
	Organizations int    `json:"organizations"`
}
