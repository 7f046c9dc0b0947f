package handlers

import (
	"log/slog"
	"net/http"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/tenant"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
)

// responder maps taxonomy kinds to status codes. Server-side failures are
// logged with full detail and reported to Sentry; the client only sees the
// detail in debug mode.
type responder struct {
	debug bool
}

func (r responder) fail(c *fiber.Ctx, err error) error {
	kind := apperr.KindOf(err)
	status := apperr.Status(kind)

	if status >= http.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", requestID(c),
			"kind", string(kind),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{
		Error:   true,
		Message: apperr.PublicMessage(err, r.debug),
		Kind:    string(kind),
	})
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

func actorFrom(c *fiber.Ctx) (authz.Actor, error) {
	actor, err := tenant.GetActor(c)
	if err != nil {
		return authz.Actor{}, apperr.Unauthenticated("authentication required")
	}
	return *actor, nil
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
