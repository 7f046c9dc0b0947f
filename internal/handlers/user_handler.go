package handlers

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type UserHandler struct {
	responder
	users *services.UserService
}

func NewUserHandler(users *services.UserService, debug bool) *UserHandler {
	return &UserHandler{responder: responder{debug: debug}, users: users}
}

func userIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid user id")
	}
	return id, nil
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	resp, err := h.users.Me(c.UserContext(), actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	filter := dto.UserFilter{
		Role:     strings.ToUpper(strings.TrimSpace(c.Query("role"))),
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", dto.DefaultPageSize),
	}
	resp, err := h.users.List(c.UserContext(), actor, filter)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	resp, err := h.users.Get(c.UserContext(), actor, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	resp, err := h.users.Update(c.UserContext(), actor, id, &req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) UpdateRole(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req dto.RoleUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}
	resp, err := h.users.UpdateRole(c.UserContext(), actor, id, strings.TrimSpace(req.Role))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	id, err := userIDParam(c)
	if err != nil {
		return h.fail(c, err)
	}
	if err := h.users.Delete(c.UserContext(), actor, id); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
