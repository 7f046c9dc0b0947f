package handlers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AnalyticsHandler serves the dashboard endpoints. Routes mount it behind
// middleware.RequireAuthority(ANALYTICS_VIEW).
type AnalyticsHandler struct {
	responder
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService, debug bool) *AnalyticsHandler {
	return &AnalyticsHandler{responder: responder{debug: debug}, analytics: analytics}
}

func (h *AnalyticsHandler) Dashboard(c *fiber.Ctx) error {
	resp, err := h.analytics.Dashboard(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// MonthlyCategory handles /analytics/:partition/monthly-category.
func (h *AnalyticsHandler) MonthlyCategory(c *fiber.Ctx) error {
	resp, err := h.analytics.MonthlyCategoryBreakdown(c.UserContext(), c.Params("partition"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

// StatusCategory handles /analytics/:partition/status-category.
func (h *AnalyticsHandler) StatusCategory(c *fiber.Ctx) error {
	resp, err := h.analytics.StatusCategoryMatrix(c.UserContext(), c.Params("partition"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *AnalyticsHandler) ExportCSV(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := h.analytics.ExportCSV(c.UserContext(), &buf); err != nil {
		return h.fail(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="reports_%s.csv"`, time.Now().UTC().Format("20060102_150405")))
	return c.Send(buf.Bytes())
}
