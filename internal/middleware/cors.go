package middleware

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows bearer-authenticated browser clients. Download links carry
// their own token, so no cookies are ever needed.
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Disposition, X-Request-ID, Retry-After",
		AllowCredentials: false,
		MaxAge:           600,
	})
}
