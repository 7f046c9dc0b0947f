package services

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService manages accounts. Every method takes the acting user and
// runs the authority check before it touches the target record.
type UserService struct {
	db       *gorm.DB
	policy   *authz.Policy
	registry *tenant.Registry
}

func NewUserService(db *gorm.DB, policy *authz.Policy, registry *tenant.Registry) *UserService {
	return &UserService{db: db, policy: policy, registry: registry}
}

func (s *UserService) load(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.KindNotFound, "user not found", ErrUserNotFound)
		}
		return nil, apperr.Dependency("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) present(user *models.User) dto.UserResponse {
	resp := dto.NewUserResponse(user)
	resp.Authorities = s.policy.Model().AuthoritiesFor(user.Role)
	return resp
}

func (s *UserService) Me(ctx context.Context, actor authz.Actor) (*dto.UserResponse, error) {
	user, err := s.load(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	resp := s.present(user)
	return &resp, nil
}

func (s *UserService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*dto.UserResponse, error) {
	if err := s.policy.CheckAuthority(actor.Role, authz.UserRead); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.UserReadAccess(actor, authz.UserSubject{ID: user.ID, TenantID: user.TenantID}); err != nil {
		return nil, err
	}
	resp := s.present(user)
	return &resp, nil
}

func (s *UserService) List(ctx context.Context, actor authz.Actor, filter dto.UserFilter) (*dto.UserListResponse, error) {
	if err := s.policy.UserListAccess(actor); err != nil {
		return nil, err
	}
	if err := dto.Validate(&filter); err != nil {
		return nil, err
	}
	filter.Normalize()

	query := s.db.WithContext(ctx).Model(&models.User{}).Scopes(tenant.UsersVisibleTo(actor))
	if filter.Role != "" {
		role, _ := authz.ParseRole(filter.Role)
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperr.Dependency("failed to count users", err)
	}
	var users []models.User
	err := query.Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&users).Error
	if err != nil {
		return nil, apperr.Dependency("failed to list users", err)
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, s.present(&users[i]))
	}
	return &dto.UserListResponse{
		Items:      items,
		Pagination: dto.NewPagination(total, filter.Page, filter.PageSize),
	}, nil
}

// Update edits profile fields. Activation and organization placement are
// admin-only.
func (s *UserService) Update(ctx context.Context, actor authz.Actor, id uuid.UUID, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if err := s.policy.UserUpdateAccess(actor, id); err != nil {
		return nil, err
	}
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if actor.Role != authz.RoleAdmin && (req.IsActive != nil || req.TenantID != nil || req.ClientID != nil) {
		return nil, apperr.Forbidden("only admins can change activation or organization")
	}

	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Email != nil {
		user.Email = normalizeEmail(req.Email)
		updates["email"] = user.Email
	}
	if req.PhoneNumber != nil {
		user.PhoneNumber = req.PhoneNumber
		if *req.PhoneNumber == "" {
			user.PhoneNumber = nil
		}
		updates["phone_number"] = user.PhoneNumber
	}
	if req.IsAnonymous != nil {
		user.IsAnonymous = *req.IsAnonymous
		updates["is_anonymous"] = user.IsAnonymous
	}
	if req.HashedDeviceID != nil {
		user.HashedDeviceID = req.HashedDeviceID
		updates["hashed_device_id"] = user.HashedDeviceID
	}
	if req.IsActive != nil {
		if id == actor.ID && !*req.IsActive {
			return nil, apperr.Validation("you cannot deactivate your own account")
		}
		user.IsActive = *req.IsActive
		updates["is_active"] = user.IsActive
	}
	if req.TenantID != nil {
		user.TenantID = emptyToNil(req.TenantID)
		updates["tenant_id"] = user.TenantID
	}
	if req.ClientID != nil {
		user.ClientID = emptyToNil(req.ClientID)
		updates["client_id"] = user.ClientID
	}
	if !user.HasContact() {
		return nil, apperr.Validation("email or phone_number is required unless is_anonymous is set")
	}
	if err := s.registry.Validate(user.TenantID, user.ClientID); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if len(updates) == 0 {
		resp := s.present(user)
		return &resp, nil
	}

	db := s.db.WithContext(ctx)
	if user.Email != nil {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", *user.Email, user.ID).Count(&count).Error; err != nil {
			return nil, apperr.Dependency("failed to check email", err)
		}
		if count > 0 {
			return nil, apperr.Wrap(apperr.KindValidation, "email already registered", ErrEmailTaken)
		}
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, apperr.Dependency("failed to update user", err)
	}
	return s.Get(ctx, actor, id)
}

// UpdateRole is admin-only; an admin cannot demote themselves.
func (s *UserService) UpdateRole(ctx context.Context, actor authz.Actor, id uuid.UUID, rawRole string) (*dto.UserResponse, error) {
	role, ok := authz.ParseRole(rawRole)
	if !ok {
		role = authz.Role(rawRole)
	}
	if err := s.policy.RoleChange(actor, id, role); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
			return nil, apperr.Dependency("failed to update role", err)
		}
		user.Role = role
	}
	resp := s.present(user)
	return &resp, nil
}

// Delete removes the account with its sessions. Reports it filed or was
// assigned survive with the reference cleared.
func (s *UserService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if err := s.policy.UserDeletion(actor, id); err != nil {
		return err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.PasswordResetToken{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Report{}).Where("assigned_officer_id = ?", user.ID).Update("assigned_officer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		return apperr.Dependency("failed to delete user", err)
	}
	return nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
