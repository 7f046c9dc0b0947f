package tenant

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const actorKey = "actor"

var ErrNoActor = errors.New("no authenticated actor in context")

// SetActor stores the resolved caller for downstream handlers.
func SetActor(c *fiber.Ctx, actor *authz.Actor) {
	c.Locals(actorKey, actor)
}

// GetActor returns the caller resolved by the actor middleware.
func GetActor(c *fiber.Ctx) (*authz.Actor, error) {
	actor, ok := c.Locals(actorKey).(*authz.Actor)
	if !ok || actor == nil {
		return nil, ErrNoActor
	}
	return actor, nil
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok {
		return uuid.Nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}
