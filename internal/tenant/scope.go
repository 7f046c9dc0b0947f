package tenant

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"gorm.io/gorm"
)

// ReportsVisibleTo is the query form of authz.CanViewReport.
func ReportsVisibleTo(actor authz.Actor) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch actor.Role {
		case authz.RoleAdmin:
			return db
		case authz.RoleSupervisor:
			if actor.TenantID == nil {
				return db
			}
			return db.Where("(reports.tenant_id = ? OR reports.tenant_id IS NULL)", *actor.TenantID)
		case authz.RoleOfficer:
			if actor.ClientID == nil {
				return db.Where("reports.assigned_officer_id = ?", actor.ID)
			}
			return db.Where("(reports.assigned_officer_id = ? OR reports.client_id = ?)", actor.ID, *actor.ClientID)
		case authz.RoleCitizen:
			return db.Where("reports.user_id = ?", actor.ID)
		default:
			return db.Where("1 = 0")
		}
	}
}

// UsersVisibleTo limits supervisors to their own organization.
func UsersVisibleTo(actor authz.Actor) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if actor.Role == authz.RoleSupervisor && actor.TenantID != nil {
			return db.Where("(users.tenant_id = ? OR users.tenant_id IS NULL)", *actor.TenantID)
		}
		return db
	}
}
