package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/ratelimit"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUserNotFound       = errors.New("user not found")
	ErrInactiveUser       = errors.New("user is inactive")
)

type AuthService struct {
	db       *gorm.DB
	cfg      *config.Config
	limiter  *ratelimit.LoginLimiter
	registry *tenant.Registry
}

func NewAuthService(db *gorm.DB, cfg *config.Config, limiter *ratelimit.LoginLimiter, registry *tenant.Registry) *AuthService {
	return &AuthService{
		db:       db,
		cfg:      cfg,
		limiter:  limiter,
		registry: registry,
	}
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

// Register creates a CITIZEN account. Elevated roles are granted by an
// admin through the role endpoint, never at sign-up.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if req.Role != "" {
		role, ok := authz.ParseRole(req.Role)
		if !ok {
			return nil, apperr.Validation("unknown role")
		}
		if role != authz.RoleCitizen {
			return nil, apperr.Forbidden("only citizen accounts can self-register")
		}
	}

	user := models.User{
		ID:             uuid.New(),
		Role:           authz.RoleCitizen,
		IsActive:       true,
		Email:          normalizeEmail(req.Email),
		PhoneNumber:    req.PhoneNumber,
		IsAnonymous:    req.IsAnonymous,
		HashedDeviceID: req.HashedDeviceID,
		TenantID:       req.TenantID,
		ClientID:       req.ClientID,
	}
	if !user.HasContact() {
		return nil, apperr.Validation("email or phone_number is required unless is_anonymous is set")
	}
	if err := s.registry.Validate(user.TenantID, user.ClientID); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	db := s.db.WithContext(ctx)
	if user.Email != nil {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", *user.Email).Count(&count).Error; err != nil {
			return nil, apperr.Dependency("failed to check email", err)
		}
		if count > 0 {
			return nil, apperr.Wrap(apperr.KindValidation, "email already registered", ErrEmailTaken)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)

	if err := db.Create(&user).Error; err != nil {
		return nil, apperr.Dependency("failed to create user", err)
	}
	slog.Info("user registered", "user_id", user.ID.String(), "anonymous", user.IsAnonymous)

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	email := *normalizeEmail(&req.Email)

	// The attempt is reserved before the password compare so concurrent
	// guesses cannot all slip under the limit. Success releases it.
	allowed, retryAfter, err := s.limiter.Reserve(ctx, email)
	if err != nil {
		return nil, apperr.Dependency("failed to check login attempts", err)
	}
	if !allowed {
		metrics.LoginLockouts.Inc()
		return nil, apperr.RateLimited(fmt.Sprintf("too many login attempts, try again in %d seconds", int(retryAfter.Seconds())))
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Dependency("failed to load user", err)
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, "invalid email or password", ErrInvalidCredentials)
	}
	if !user.IsActive {
		return nil, apperr.Wrap(apperr.KindAuthentication, "account is inactive", ErrInactiveUser)
	}

	if err := s.limiter.Reset(ctx, email); err != nil {
		slog.Error("failed to reset login attempts", "error", err)
	}
	now := time.Now()
	user.LastLoginAt = &now
	s.db.WithContext(ctx).Model(&user).Update("last_login_at", now)

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	tokenHash := hashToken(req.RefreshToken)

	var stored models.RefreshToken
	if err := db.Where("token_hash = ? AND revoked = ?", tokenHash, false).First(&stored).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, "invalid or expired refresh token", ErrInvalidToken)
	}

	db.Model(&stored).Update("revoked", true)
	if time.Now().After(stored.ExpiresAt) {
		return nil, apperr.Wrap(apperr.KindAuthentication, "invalid or expired refresh token", ErrInvalidToken)
	}

	var user models.User
	if err := db.First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, apperr.Wrap(apperr.KindAuthentication, "user not found", ErrUserNotFound)
	}
	if !user.IsActive {
		return nil, apperr.Wrap(apperr.KindAuthentication, "account is inactive", ErrInactiveUser)
	}

	return s.generateTokenPair(ctx, &user)
}

func (s *AuthService) Logout(ctx context.Context, req *dto.LogoutRequest) error {
	if err := dto.Validate(req); err != nil {
		return err
	}
	tokenHash := hashToken(req.RefreshToken)
	err := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
	if err != nil {
		return apperr.Dependency("failed to logout", err)
	}
	return nil
}

// RequestPasswordReset issues a single-use reset token. Unknown emails get
// an empty token and no error so the endpoint cannot be used to probe for
// accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req *dto.PasswordResetRequest) (string, error) {
	if err := dto.Validate(req); err != nil {
		return "", err
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.Where("email = ?", *normalizeEmail(&req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperr.Dependency("failed to load user", err)
	}
	if !user.IsActive {
		return "", nil
	}

	raw, err := randomToken()
	if err != nil {
		return "", err
	}
	record := models.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: time.Now().Add(s.cfg.PasswordResetExpiry),
	}
	if err := db.Create(&record).Error; err != nil {
		return "", apperr.Dependency("failed to store reset token", err)
	}
	slog.Info("password reset requested", "user_id", user.ID.String())
	return raw, nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *dto.PasswordResetConfirmRequest) error {
	if err := dto.Validate(req); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.PasswordResetToken
		err := tx.Where("token_hash = ? AND used_at IS NULL", hashToken(req.Token)).First(&record).Error
		if err != nil || time.Now().After(record.ExpiresAt) {
			return apperr.Wrap(apperr.KindValidation, "invalid or expired reset token", ErrInvalidToken)
		}
		now := time.Now()
		if err := tx.Model(&record).Update("used_at", now).Error; err != nil {
			return apperr.Dependency("failed to consume reset token", err)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", record.UserID).Update("password_hash", string(hash)).Error; err != nil {
			return apperr.Dependency("failed to update password", err)
		}
		return revokeRefreshTokens(tx, record.UserID)
	})
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req *dto.ChangePasswordRequest) error {
	if err := dto.Validate(req); err != nil {
		return err
	}
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return apperr.Wrap(apperr.KindNotFound, "user not found", ErrUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return apperr.Wrap(apperr.KindValidation, "current password is incorrect", ErrInvalidCredentials)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
			return apperr.Dependency("failed to update password", err)
		}
		return revokeRefreshTokens(tx, user.ID)
	})
}

func revokeRefreshTokens(tx *gorm.DB, userID uuid.UUID) error {
	err := tx.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
	if err != nil {
		return apperr.Dependency("failed to revoke sessions", err)
	}
	return nil
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.JWTAccessExpiry.Seconds()),
		UserID:       user.ID,
		Role:         user.Role,
		User:         dto.NewUserResponse(user),
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWTAccessExpiry).Unix(),
	}
	if user.TenantID != nil {
		claims["tenant_id"] = *user.TenantID
	}
	if user.ClientID != nil {
		claims["client_id"] = *user.ClientID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawToken, err := randomToken()
	if err != nil {
		return "", err
	}

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", apperr.Dependency("failed to store refresh token", err)
	}

	return rawToken, nil
}

func randomToken() (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.URLEncoding.EncodeToString(rawBytes), nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
