package handlers

import (
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	responder
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService, debug bool) *AuthHandler {
	return &AuthHandler{
		responder:   responder{debug: debug},
		authService: authService,
		userService: userService,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

// RequestPasswordReset always answers 200. The token is echoed only in
// debug mode because email delivery is not wired.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	token, err := h.authService.RequestPasswordReset(c.UserContext(), &req)
	if err != nil {
		return h.fail(c, err)
	}
	resp := dto.PasswordResetResponse{Message: "If the account exists, a reset link has been sent"}
	if h.debug {
		resp.Token = token
	}
	return c.JSON(resp)
}

func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authService.ConfirmPasswordReset(c.UserContext(), &req); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password has been reset"})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return h.fail(c, err)
	}

	if err := h.authService.ChangePassword(c.UserContext(), actor.ID, &req); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(dto.MessageResponse{Message: "Password changed"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return h.fail(c, err)
	}
	resp, err := h.userService.Me(c.UserContext(), actor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(resp)
}
