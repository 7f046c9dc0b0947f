// Package authz holds the static role → authority table and the access policy
// evaluated by every report and user endpoint.
package authz

import "strings"

// Role is the closed set of user roles, ordered by privilege.
type Role string

const (
	RoleCitizen    Role = "CITIZEN"
	RoleOfficer    Role = "OFFICER"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleCitizen:    1,
	RoleOfficer:    2,
	RoleSupervisor: 3,
	RoleAdmin:      4,
}

// ParseRole accepts any casing of a known role and rejects everything else.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleRank[r]; !ok {
		return "", false
	}
	return r, true
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

type Authority string

const (
	ReportCreate    Authority = "REPORT_CREATE"
	ReportUpdateOwn Authority = "REPORT_UPDATE_OWN"
	ReportUpdateAll Authority = "REPORT_UPDATE_ALL"
	ReportClose     Authority = "REPORT_CLOSE"
	ReportDeleteOwn Authority = "REPORT_DELETE_OWN"
	ReportDeleteAll Authority = "REPORT_DELETE_ALL"
	UserRead        Authority = "USER_READ"
	UserUpdate      Authority = "USER_UPDATE"
	UserDelete      Authority = "USER_DELETE"
	UserListAll     Authority = "USER_LIST_ALL"
	AnalyticsView   Authority = "ANALYTICS_VIEW"
)

// Table maps each role to its independently enumerated authorities.
type Table map[Role][]Authority

// DefaultTable is not cumulative by rank: OFFICER and SUPERVISOR hold no
// delete authority even though ADMIN, who outranks them, holds both.
var DefaultTable = Table{
	RoleCitizen: {
		ReportCreate,
		ReportUpdateOwn,
		ReportDeleteOwn,
		UserRead,
		UserUpdate,
	},
	RoleOfficer: {
		ReportCreate,
		ReportUpdateOwn,
		ReportClose,
		UserRead,
		UserUpdate,
	},
	RoleSupervisor: {
		ReportCreate,
		ReportUpdateAll,
		ReportClose,
		UserRead,
		UserUpdate,
		UserListAll,
		AnalyticsView,
	},
	RoleAdmin: {
		ReportCreate,
		ReportUpdateOwn,
		ReportUpdateAll,
		ReportClose,
		ReportDeleteOwn,
		ReportDeleteAll,
		UserRead,
		UserUpdate,
		UserDelete,
		UserListAll,
		AnalyticsView,
	},
}

// Model answers authority questions against a fixed table.
type Model struct {
	table Table
}

func NewModel(table Table) *Model {
	copied := make(Table, len(table))
	for role, auths := range table {
		copied[role] = append([]Authority(nil), auths...)
	}
	return &Model{table: copied}
}

// HasAuthority fails closed: unknown roles hold nothing.
func (m *Model) HasAuthority(role Role, authority Authority) bool {
	for _, a := range m.table[role] {
		if a == authority {
			return true
		}
	}
	return false
}

// AuthoritiesFor returns a copy of the role's authorities in table order.
func (m *Model) AuthoritiesFor(role Role) []Authority {
	auths, ok := m.table[role]
	if !ok {
		return []Authority{}
	}
	return append([]Authority(nil), auths...)
}

var defaultModel = NewModel(DefaultTable)

func HasAuthority(role Role, authority Authority) bool {
	return defaultModel.HasAuthority(role, authority)
}

func AuthoritiesFor(role Role) []Authority {
	return defaultModel.AuthoritiesFor(role)
}
