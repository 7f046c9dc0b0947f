package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Handlers struct {
	Auth      *handlers.AuthHandler
	Reports   *handlers.ReportHandler
	Users     *handlers.UserHandler
	Analytics *handlers.AnalyticsHandler
	Files     *handlers.FileHandler
	Health    *handlers.HealthHandler
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, policy *authz.Policy, h Handlers) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")

	// General API rate limiter: 120 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               120,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Signed download links carry their own credential.
	api.Get("/files/:name", h.Files.Download)

	// Public auth routes: per-IP limit here, per-email lockout in the service.
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               20,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/password-reset/request", h.Auth.RequestPasswordReset)
	auth.Post("/password-reset/confirm", h.Auth.ConfirmPasswordReset)

	protected := []fiber.Handler{middleware.JWTProtected(cfg), middleware.ResolveActor(db)}
	withActor := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler(nil), protected...), handler)
	}

	api.Post("/auth/logout", withActor(h.Auth.Logout)...)
	api.Post("/auth/change-password", withActor(h.Auth.ChangePassword)...)
	api.Get("/auth/me", withActor(h.Auth.Me)...)

	reports := api.Group("/reports", protected...)
	reports.Post("/", h.Reports.Create)
	reports.Get("/", h.Reports.List)
	reports.Get("/user/:id", h.Reports.ListByUser)
	reports.Get("/:id", h.Reports.Get)
	reports.Get("/:id/attachments", h.Reports.Attachments)
	reports.Put("/:id/status", h.Reports.UpdateStatus)
	reports.Put("/:id/assign", h.Reports.Assign)
	reports.Delete("/:id", h.Reports.Delete)

	users := api.Group("/users", protected...)
	users.Get("/", h.Users.List)
	users.Get("/me", h.Users.Me)
	users.Get("/:id", h.Users.Get)
	users.Put("/:id", h.Users.Update)
	users.Put("/:id/role", h.Users.UpdateRole)
	users.Delete("/:id", h.Users.Delete)

	analytics := api.Group("/analytics", append(protected, middleware.RequireAuthority(policy, authz.AnalyticsView))...)
	analytics.Get("/dashboard", h.Analytics.Dashboard)
	analytics.Get("/export.csv", h.Analytics.ExportCSV)
	analytics.Get("/:partition/monthly-category", h.Analytics.MonthlyCategory)
	analytics.Get("/:partition/status-category", h.Analytics.StatusCategory)
}
