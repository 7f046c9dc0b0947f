package handlers

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ReportHandler composes every endpoint as: authority check, load (404),
// scope check, then the operation.
type ReportHandler struct {
	responder
	reports  *services.ReportService
	policy   *authz.Policy
	registry *tenant.Registry
}

func NewReportHandler(reports *services.ReportService, policy *authz.Policy, registry *tenant.Registry, debug bool) *ReportHandler {
	return &ReportHandler{
		responder: responder{debug: debug},
		reports:   reports,
		policy:    policy,
		registry:  registry,
	}
}

func scopeOf(r *models.Report) authz.ReportScope {
	return authz.ReportScope{
		OwnerID:           r.UserID,
		AssignedOfficerID: r.AssignedOfficerID,
		TenantID:          r.TenantID,
		ClientID:          r.ClientID,
		Status:            r.Status,
	}
}

func optionalForm(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return nil
	}
	return &v
}

func parseCreateForm(c *fiber.Ctx) (dto.CreateReportForm, error) {
	form := dto.CreateReportForm{
		Title:                c.FormValue("title"),
		DescriptionText:      c.FormValue("description_text"),
		LocationRaw:          c.FormValue("location"),
		CategoryID:           strings.ToLower(strings.TrimSpace(c.FormValue("category_id"))),
		TranscribedVoiceText: optionalForm(c, "transcribed_voice_text"),
		HashedDeviceID:       optionalForm(c, "hashed_device_id"),
		TenantID:             optionalForm(c, "tenant_id"),
		ClientID:             optionalForm(c, "client_id"),
	}
	if form.CategoryID == "" {
		form.CategoryID = models.CategoryOther
	}

	// Parse everything so the caller can authorize on user_id before
	// reporting a malformed field.
	var formErr error
	if raw := optionalForm(c, "user_id"); raw != nil {
		id, err := uuid.Parse(*raw)
		if err != nil {
			formErr = apperr.Validation("user_id must be a valid UUID")
		} else {
			form.UserID = &id
		}
	}
	if raw := optionalForm(c, "is_anonymous"); raw != nil {
		b, err := strconv.ParseBool(*raw)
		if err != nil && formErr == nil {
			formErr = apperr.Validation("is_anonymous must be a boolean")
		}
		form.IsAnonymous = b
	}
	return form, formErr
}

func toUploads(headers []*multipart.FileHeader) []services.FileUpload {
	files := make([]services.FileUpload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, services.FileUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}

// Create handles POST /reports (multipart: fields plus one or more "files").
func (h *ReportHandler) Create(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	form, formErr := parseCreateForm(c)

	onBehalfOf := actor.ID
	if form.UserID != nil {
		onBehalfOf = *form.UserID
	}
	if err := h.policy.AuthorizeCreate(actor, onBehalfOf); err != nil {
		return h.fail(c, err)
	}
	if formErr != nil {
		return h.fail(c, formErr)
	}

	var headers []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil {
		headers = mf.File["files"]
	}
	if len(headers) == 0 {
		return h.fail(c, apperr.Validation("at least one file is required"))
	}
	if err := dto.Validate(&form); err != nil {
		return h.fail(c, err)
	}

	tenantID, clientID := form.TenantID, form.ClientID
	if tenantID == nil {
		tenantID = actor.TenantID
	}
	if clientID == nil {
		clientID = actor.ClientID
	}
	if err := h.registry.Validate(tenantID, clientID); err != nil {
		return h.fail(c, apperr.Validation(err.Error()))
	}

	report, err := h.reports.CreateReportWithAttachments(c.UserContext(), services.NewReport{
		OwnerID:              &onBehalfOf,
		Title:                form.Title,
		DescriptionText:      form.DescriptionText,
		LocationRaw:          form.LocationRaw,
		CategoryID:           form.CategoryID,
		TranscribedVoiceText: form.TranscribedVoiceText,
		IsAnonymous:          form.IsAnonymous,
		HashedDeviceID:       form.HashedDeviceID,
		TenantID:             tenantID,
		ClientID:             clientID,
	}, toUploads(headers))
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(h.reports.Present(actor, report))
}

func parseFilter(c *fiber.Ctx) (dto.ReportFilter, error) {
	filter := dto.ReportFilter{
		Status:     strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		CategoryID: strings.ToLower(strings.TrimSpace(c.Query("category_id"))),
		Page:       c.QueryInt("page", 1),
		PageSize:   c.QueryInt("page_size", dto.DefaultPageSize),
	}
	if err := dto.Validate(&filter); err != nil {
		return filter, err
	}
	return filter, nil
}

func (h *ReportHandler) respondList(c *fiber.Ctx, actor authz.Actor, ownerID *uuid.UUID) error {
	filter, err := parseFilter(c)
	if err != nil {
		return h.fail(c, err)
	}
	reports, page, err := h.reports.ListReports(c.UserContext(), actor, filter, ownerID)
	if err != nil {
		return h.fail(c, err)
	}
	items := make([]dto.ReportResponse, 0, len(reports))
	for i := range reports {
		items = append(items, h.reports.Present(actor, &reports[i]))
	}
	return c.JSON(dto.ReportListResponse{Items: items, Pagination: page})
}

// List handles GET /reports, scoped to what the actor may see.
func (h *ReportHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	return h.respondList(c, actor, nil)
}

// ListByUser handles GET /reports/user/:id. Citizens may only ask for their
// own reports; staff see the intersection with their usual scope.
func (h *ReportHandler) ListByUser(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return h.fail(c, apperr.Validation("invalid user id"))
	}
	if err := authz.RequireOwnership(&userID, actor, authz.RoleOfficer, authz.RoleSupervisor); err != nil {
		return h.fail(c, err)
	}
	return h.respondList(c, actor, &userID)
}

func (h *ReportHandler) loadVisible(c *fiber.Ctx, actor authz.Actor) (*models.Report, error) {
	report, err := h.reports.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if err := h.policy.RequireReportView(actor, scopeOf(report)); err != nil {
		return nil, err
	}
	return report, nil
}

func (h *ReportHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.loadVisible(c, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.reports.Present(actor, report))
}

func (h *ReportHandler) Attachments(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	report, err := h.loadVisible(c, actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.reports.PresentAttachments(report.Attachments))
}

// UpdateStatus handles PUT /reports/:id/status.
func (h *ReportHandler) UpdateStatus(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.StatusUpdateAuthority(actor); err != nil {
		return h.fail(c, err)
	}

	var req dto.StatusUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := dto.Validate(&req); err != nil {
		return h.fail(c, err)
	}

	report, err := h.reports.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.StatusUpdateScope(actor, scopeOf(report), models.StatusSubmitted); err != nil {
		return h.fail(c, err)
	}

	expected := ""
	if actor.Role == authz.RoleCitizen {
		expected = models.StatusSubmitted
	}
	updated, err := h.reports.UpdateStatus(c.UserContext(), report.ID, req.Status, req.Notes, expected)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.reports.Present(actor, updated))
}

// Assign handles PUT /reports/:id/assign.
func (h *ReportHandler) Assign(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.AssignAuthority(actor); err != nil {
		return h.fail(c, err)
	}

	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	if err := dto.Validate(&req); err != nil {
		return h.fail(c, err)
	}

	report, err := h.reports.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.AssignScope(actor, scopeOf(report)); err != nil {
		return h.fail(c, err)
	}

	updated, err := h.reports.AssignOfficer(c.UserContext(), report, uuid.MustParse(req.OfficerID))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(h.reports.Present(actor, updated))
}

// Delete handles DELETE /reports/:id. Officers and supervisors are refused
// before anything is looked up.
func (h *ReportHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.DeleteAuthority(actor); err != nil {
		return h.fail(c, err)
	}

	report, err := h.reports.GetReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.policy.DeleteScope(actor, scopeOf(report)); err != nil {
		return h.fail(c, err)
	}

	found, err := h.reports.DeleteReport(c.UserContext(), report.ID)
	if err != nil {
		return h.fail(c, err)
	}
	if !found {
		return h.fail(c, apperr.NotFound("report not found"))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
