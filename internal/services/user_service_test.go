package services

import (
	"context"
	"testing"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestUserService_UpdateRole(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, authz.NewPolicy(nil), tenant.NewRegistry())
	ctx := context.Background()
	admin := createUser(t, db, authz.RoleAdmin, nil, nil)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)
	supervisor := createUser(t, db, authz.RoleSupervisor, nil, nil)

	_, err := svc.UpdateRole(ctx, actorOf(admin), admin.ID, "CITIZEN")
	assert.True(t, apperr.Is(err, apperr.KindValidation), "admins cannot demote themselves")

	_, err = svc.UpdateRole(ctx, actorOf(supervisor), citizen.ID, "OFFICER")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.UpdateRole(ctx, actorOf(admin), uuid.New(), "OFFICER")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	resp, err := svc.UpdateRole(ctx, actorOf(admin), citizen.ID, "officer")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOfficer, resp.Role)
	assert.Contains(t, resp.Authorities, authz.ReportClose)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", citizen.ID).Error)
	assert.Equal(t, authz.RoleOfficer, reloaded.Role)
}

func TestUserService_Delete(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, authz.NewPolicy(nil), tenant.NewRegistry())
	reports := newTestReportService(db, newMemStore())
	ctx := context.Background()
	admin := createUser(t, db, authz.RoleAdmin, nil, nil)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	report, err := reports.CreateReportWithAttachments(ctx, validReport(citizen), []FileUpload{upload("a.jpg", "image/jpeg", "a")})
	require.NoError(t, err)

	assert.True(t, apperr.Is(svc.Delete(ctx, actorOf(admin), admin.ID), apperr.KindValidation))
	assert.True(t, apperr.Is(svc.Delete(ctx, actorOf(citizen), admin.ID), apperr.KindAuthorization))

	require.NoError(t, svc.Delete(ctx, actorOf(admin), citizen.ID))

	var n int64
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", citizen.ID).Count(&n).Error)
	assert.Zero(t, n)

	kept, err := reports.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Nil(t, kept.UserID)
}

func TestUserService_GetAndList(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, authz.NewPolicy(nil), tenant.NewRegistry())
	ctx := context.Background()
	supervisor := createUser(t, db, authz.RoleSupervisor, strPtr("moi"), nil)
	local := createUser(t, db, authz.RoleOfficer, strPtr("moi"), strPtr("cairo"))
	foreign := createUser(t, db, authz.RoleOfficer, strPtr("moh"), strPtr("alex"))
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)

	_, err := svc.Get(ctx, actorOf(supervisor), local.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, actorOf(supervisor), foreign.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.Get(ctx, actorOf(citizen), local.ID)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	me, err := svc.Get(ctx, actorOf(citizen), citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, citizen.ID, me.ID)

	_, err = svc.List(ctx, actorOf(citizen), dto.UserFilter{})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	list, err := svc.List(ctx, actorOf(supervisor), dto.UserFilter{Role: "OFFICER"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, local.ID, list.Items[0].ID)
}

func TestUserService_Update(t *testing.T) {
	db := setupTestDB(t)
	svc := NewUserService(db, authz.NewPolicy(nil), tenant.NewRegistry())
	ctx := context.Background()
	admin := createUser(t, db, authz.RoleAdmin, nil, nil)
	citizen := createUser(t, db, authz.RoleCitizen, nil, nil)
	other := createUser(t, db, authz.RoleCitizen, nil, nil)

	phone := "+201000000000"
	resp, err := svc.Update(ctx, actorOf(citizen), citizen.ID, &dto.UpdateUserRequest{PhoneNumber: &phone})
	require.NoError(t, err)
	require.NotNil(t, resp.PhoneNumber)
	assert.Equal(t, phone, *resp.PhoneNumber)

	_, err = svc.Update(ctx, actorOf(citizen), other.ID, &dto.UpdateUserRequest{PhoneNumber: &phone})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.Update(ctx, actorOf(citizen), citizen.ID, &dto.UpdateUserRequest{IsActive: boolPtr(false)})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = svc.Update(ctx, actorOf(admin), admin.ID, &dto.UpdateUserRequest{IsActive: boolPtr(false)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	resp, err = svc.Update(ctx, actorOf(admin), other.ID, &dto.UpdateUserRequest{IsActive: boolPtr(false), TenantID: strPtr("moi")})
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	_, err = svc.Update(ctx, actorOf(admin), other.ID, &dto.UpdateUserRequest{Email: citizen.Email})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
