package middleware

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ResolveActor turns the verified token into an authz.Actor. Role and
// scopes come from the user row, not the token, so a role change or
// deactivation takes effect before the token expires.
func ResolveActor(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := tenant.GetUserID(c)
		if err != nil {
			return deny(c, apperr.Unauthenticated("Unauthorized: invalid token subject"))
		}

		var user models.User
		if err := db.WithContext(c.UserContext()).First(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return deny(c, apperr.Unauthenticated("Unauthorized: user no longer exists"))
			}
			slog.Error("actor lookup failed", "user_id", userID.String(), "error", err)
			return deny(c, apperr.Dependency("failed to load user", err))
		}
		if !user.IsActive {
			return deny(c, apperr.Unauthenticated("Unauthorized: account is inactive"))
		}
		if !user.Role.Valid() {
			return deny(c, apperr.Forbidden("account has an unknown role"))
		}

		tenant.SetActor(c, &authz.Actor{
			ID:       user.ID,
			Role:     user.Role,
			TenantID: user.TenantID,
			ClientID: user.ClientID,
		})
		return c.Next()
	}
}

// RequireAuthority gates a route group on one authority.
func RequireAuthority(policy *authz.Policy, authority authz.Authority) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := tenant.GetActor(c)
		if err != nil {
			return deny(c, apperr.Unauthenticated("authentication required"))
		}
		if err := policy.CheckAuthority(actor.Role, authority); err != nil {
			return deny(c, err)
		}
		return c.Next()
	}
}
