package handlers

import (
	"context"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db        *gorm.DB
	analytics *gorm.DB
	registry  *tenant.Registry
}

func NewHealthHandler(db, analytics *gorm.DB, registry *tenant.Registry) *HealthHandler {
	return &HealthHandler{db: db, analytics: analytics, registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "ok"
	if err := database.Ping(ctx, h.db); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}
	analyticsStatus := "ok"
	if err := database.Ping(ctx, h.analytics); err != nil {
		analyticsStatus = "unhealthy: " + err.Error()
		status = "degraded"
	}

	code := fiber.StatusOK
	if dbStatus != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.HealthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		DB:            dbStatus,
		AnalyticsDB:   analyticsStatus,
		Organizations: h.registry.Len(),
	})
}
