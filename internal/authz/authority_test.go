package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allAuthorities = []Authority{
	ReportCreate, ReportUpdateOwn, ReportUpdateAll, ReportClose,
	ReportDeleteOwn, ReportDeleteAll, UserRead, UserUpdate,
	UserDelete, UserListAll, AnalyticsView,
}

func TestHasAuthority_MatchesDefaultTable(t *testing.T) {
	for role, granted := range DefaultTable {
		set := make(map[Authority]bool, len(granted))
		for _, a := range granted {
			set[a] = true
		}
		for _, a := range allAuthorities {
			assert.Equal(t, set[a], HasAuthority(role, a), "%s / %s", role, a)
			// deterministic across calls
			assert.Equal(t, HasAuthority(role, a), HasAuthority(role, a))
		}
	}
}

func TestHasAuthority_UnknownRoleFailsClosed(t *testing.T) {
	for _, a := range allAuthorities {
		assert.False(t, HasAuthority(Role("JANITOR"), a))
		assert.False(t, HasAuthority(Role(""), a))
	}
	assert.Empty(t, AuthoritiesFor(Role("JANITOR")))
	assert.NotNil(t, AuthoritiesFor(Role("JANITOR")))
}

func TestDefaultTable_DeleteNotInheritedByStaff(t *testing.T) {
	for _, role := range []Role{RoleOfficer, RoleSupervisor} {
		assert.False(t, HasAuthority(role, ReportDeleteOwn), role)
		assert.False(t, HasAuthority(role, ReportDeleteAll), role)
	}
	assert.True(t, HasAuthority(RoleCitizen, ReportDeleteOwn))
	assert.True(t, HasAuthority(RoleAdmin, ReportDeleteAll))
}

func TestAuthoritiesFor_ReturnsCopy(t *testing.T) {
	auths := AuthoritiesFor(RoleCitizen)
	require.NotEmpty(t, auths)
	auths[0] = AnalyticsView

	assert.False(t, HasAuthority(RoleCitizen, AnalyticsView))
}

func TestNewModel_IsolatedFromSourceTable(t *testing.T) {
	table := Table{RoleCitizen: {ReportCreate}}
	m := NewModel(table)
	table[RoleCitizen][0] = AnalyticsView

	assert.True(t, m.HasAuthority(RoleCitizen, ReportCreate))
	assert.False(t, m.HasAuthority(RoleCitizen, AnalyticsView))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"CITIZEN", RoleCitizen, true},
		{"admin", RoleAdmin, true},
		{" Officer ", RoleOfficer, true},
		{"supervisor", RoleSupervisor, true},
		{"user", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
