package authz

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/google/uuid"
)

// Actor is the authenticated caller. Missing tenant or client ids mean no
// isolation is configured for that scope.
type Actor struct {
	ID       uuid.UUID
	Role     Role
	TenantID *string
	ClientID *string
}

// ReportScope is the subset of a report that visibility rules look at.
type ReportScope struct {
	OwnerID           *uuid.UUID
	AssignedOfficerID *uuid.UUID
	TenantID          *string
	ClientID          *string
	Status            string
}

// Policy evaluates authority and scope checks. Authority checks must run
// before the resource is loaded so a caller without the base capability
// cannot probe for existence.
type Policy struct {
	model *Model
}

func NewPolicy(model *Model) *Policy {
	if model == nil {
		model = defaultModel
	}
	return &Policy{model: model}
}

func (p *Policy) Model() *Model { return p.model }

func (p *Policy) CheckAuthority(role Role, authority Authority) error {
	if !p.model.HasAuthority(role, authority) {
		return apperr.Forbidden("missing authority " + string(authority))
	}
	return nil
}

// --- scope primitives ---

func ResourceOwnership(ownerID *uuid.UUID, actorID uuid.UUID, actorRole Role, extraAllowed ...Role) bool {
	if actorRole == RoleAdmin {
		return true
	}
	for _, r := range extraAllowed {
		if r == actorRole {
			return true
		}
	}
	return ownerID != nil && *ownerID == actorID
}

func TenantAccess(resourceTenantID, actorTenantID *string, actorRole Role) bool {
	if actorRole == RoleAdmin {
		return true
	}
	if resourceTenantID == nil || actorTenantID == nil {
		return true
	}
	return *resourceTenantID == *actorTenantID
}

func ClientAccess(resourceClientID, actorClientID *string, actorRole Role) bool {
	if actorRole == RoleAdmin || actorRole == RoleSupervisor {
		return true
	}
	if resourceClientID == nil || actorClientID == nil {
		return true
	}
	return *resourceClientID == *actorClientID
}

func RequireOwnership(ownerID *uuid.UUID, actor Actor, extraAllowed ...Role) error {
	if !ResourceOwnership(ownerID, actor.ID, actor.Role, extraAllowed...) {
		return apperr.Forbidden("you can only access your own resources")
	}
	return nil
}

func RequireTenant(resourceTenantID *string, actor Actor) error {
	if !TenantAccess(resourceTenantID, actor.TenantID, actor.Role) {
		return apperr.Forbidden("resource belongs to another organization")
	}
	return nil
}

func RequireClient(resourceClientID *string, actor Actor) error {
	if !ClientAccess(resourceClientID, actor.ClientID, actor.Role) {
		return apperr.Forbidden("resource belongs to another department")
	}
	return nil
}

// --- report visibility ---

// CanViewReport applies the per-role visibility rule shared by single reads
// and listings (see services.ScopeReports for the query form).
func CanViewReport(actor Actor, r ReportScope) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleSupervisor:
		return TenantAccess(r.TenantID, actor.TenantID, actor.Role)
	case RoleOfficer:
		if r.AssignedOfficerID != nil && *r.AssignedOfficerID == actor.ID {
			return true
		}
		if actor.ClientID == nil || r.ClientID == nil {
			return false
		}
		return ClientAccess(r.ClientID, actor.ClientID, actor.Role)
	case RoleCitizen:
		return r.OwnerID != nil && *r.OwnerID == actor.ID
	default:
		return false
	}
}

func (p *Policy) RequireReportView(actor Actor, r ReportScope) error {
	if !CanViewReport(actor, r) {
		return apperr.Forbidden("you do not have access to this report")
	}
	return nil
}

// --- report creation ---

// AuthorizeCreate checks REPORT_CREATE and that a citizen files only for
// themselves. Staff may file on behalf of any user.
func (p *Policy) AuthorizeCreate(actor Actor, onBehalfOf uuid.UUID) error {
	if err := p.CheckAuthority(actor.Role, ReportCreate); err != nil {
		return err
	}
	if actor.Role == RoleCitizen && onBehalfOf != actor.ID {
		return apperr.Forbidden("citizens can only create reports for themselves")
	}
	return nil
}

// --- status update ---

func (p *Policy) StatusUpdateAuthority(actor Actor) error {
	switch actor.Role {
	case RoleCitizen:
		return p.CheckAuthority(actor.Role, ReportUpdateOwn)
	case RoleOfficer:
		return p.CheckAuthority(actor.Role, ReportClose)
	case RoleSupervisor, RoleAdmin:
		return p.CheckAuthority(actor.Role, ReportUpdateAll)
	default:
		return apperr.Forbidden("unknown role")
	}
}

// StatusUpdateScope runs after the report is loaded.
func (p *Policy) StatusUpdateScope(actor Actor, r ReportScope, initialStatus string) error {
	switch actor.Role {
	case RoleCitizen:
		if r.OwnerID == nil || *r.OwnerID != actor.ID {
			return apperr.Forbidden("you can only update your own reports")
		}
		if r.Status != initialStatus {
			return apperr.Forbidden("you can only update reports that are still submitted")
		}
		return nil
	case RoleOfficer:
		if !CanViewReport(actor, r) {
			return apperr.Forbidden("you can only update reports assigned to you or in your department")
		}
		return nil
	case RoleSupervisor, RoleAdmin:
		return nil
	default:
		return apperr.Forbidden("unknown role")
	}
}

// --- assignment ---

func (p *Policy) AssignAuthority(actor Actor) error {
	if actor.Role != RoleSupervisor && actor.Role != RoleAdmin {
		return apperr.Forbidden("only supervisors and admins can assign reports")
	}
	return p.CheckAuthority(actor.Role, ReportUpdateAll)
}

func (p *Policy) AssignScope(actor Actor, r ReportScope) error {
	return RequireTenant(r.TenantID, actor)
}

// --- deletion ---

// DeleteAuthority hard-denies OFFICER and SUPERVISOR before the authority
// table is consulted, so a misconfigured table cannot grant them deletion.
func (p *Policy) DeleteAuthority(actor Actor) error {
	switch actor.Role {
	case RoleOfficer, RoleSupervisor:
		return apperr.Forbidden("officers and supervisors cannot delete reports")
	case RoleCitizen:
		return p.CheckAuthority(actor.Role, ReportDeleteOwn)
	case RoleAdmin:
		return p.CheckAuthority(actor.Role, ReportDeleteAll)
	default:
		return apperr.Forbidden("unknown role")
	}
}

func (p *Policy) DeleteScope(actor Actor, r ReportScope) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	if r.OwnerID == nil || *r.OwnerID != actor.ID {
		return apperr.Forbidden("you can only delete your own reports")
	}
	return nil
}

// --- users ---

// UserSubject is the subset of a user record that user-management rules
// look at.
type UserSubject struct {
	ID       uuid.UUID
	TenantID *string
}

func (p *Policy) UserReadAccess(actor Actor, target UserSubject) error {
	if err := p.CheckAuthority(actor.Role, UserRead); err != nil {
		return err
	}
	if err := RequireOwnership(&target.ID, actor, RoleSupervisor); err != nil {
		return err
	}
	if actor.Role == RoleSupervisor && target.ID != actor.ID {
		return RequireTenant(target.TenantID, actor)
	}
	return nil
}

func (p *Policy) UserUpdateAccess(actor Actor, targetID uuid.UUID) error {
	if err := p.CheckAuthority(actor.Role, UserUpdate); err != nil {
		return err
	}
	return RequireOwnership(&targetID, actor)
}

func (p *Policy) UserListAccess(actor Actor) error {
	if actor.Role != RoleAdmin && actor.Role != RoleSupervisor {
		return apperr.Forbidden("only admins and supervisors can list users")
	}
	return p.CheckAuthority(actor.Role, UserListAll)
}

// RoleChange allows only admins and blocks an admin from demoting
// themselves. Self-demotion is a validation failure, not an authorization one.
func (p *Policy) RoleChange(actor Actor, targetID uuid.UUID, newRole Role) error {
	if actor.Role != RoleAdmin {
		return apperr.Forbidden("admin privileges required")
	}
	if !newRole.Valid() {
		return apperr.Validation("unknown role")
	}
	if targetID == actor.ID && newRole != RoleAdmin {
		return apperr.Validation("you cannot demote yourself")
	}
	return nil
}

func (p *Policy) UserDeletion(actor Actor, targetID uuid.UUID) error {
	if actor.Role != RoleAdmin {
		return apperr.Forbidden("admin privileges required")
	}
	if err := p.CheckAuthority(actor.Role, UserDelete); err != nil {
		return err
	}
	if targetID == actor.ID {
		return apperr.Validation("you cannot delete your own account")
	}
	return nil
}

func (p *Policy) AnalyticsAccess(actor Actor) error {
	return p.CheckAuthority(actor.Role, AnalyticsView)
}
