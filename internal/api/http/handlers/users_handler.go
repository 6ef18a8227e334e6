package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/api/dto"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/service"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// UsersHandler manages registration, login and password endpoints.
type UsersHandler struct {
	authService *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{authService: authService}
}

// Register POST /auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var payload dto.RegisterPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.authService.Register(c.Context(), registerInput(payload))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// Login POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var payload dto.LoginPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	result, err := h.authService.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      dto.NewUserResponse(result.User),
	}})
}

// Me GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ChangePassword POST /auth/password/change.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.ChangePasswordPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.ChangePassword(c.Context(), user, payload.CurrentPassword, payload.NewPassword, payload.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"changed": true}})
}

// RequestPasswordReset POST /auth/password/reset/request.
func (h *UsersHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var payload dto.ResetRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.RequestPasswordReset(c.Context(), payload.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"requested": true}})
}

// ConfirmPasswordReset POST /auth/password/reset/confirm.
func (h *UsersHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var payload dto.ResetConfirmPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.ResetPassword(c.Context(), payload.Token, payload.NewPassword, payload.ConfirmPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reset": true}})
}

// AdminCreateUser POST /admin/users.
func (h *UsersHandler) AdminCreateUser(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.AdminCreateUserPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	user, err := h.authService.AdminCreateUser(c.Context(), actor, registerInput(payload.RegisterPayload), domain.Role(payload.Role))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// AdminSetActive PATCH /admin/users/:id/active.
func (h *UsersHandler) AdminSetActive(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	userID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var payload struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := h.authService.SetActive(c.Context(), actor, userID, payload.Active); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"active": payload.Active}})
}

func registerInput(payload dto.RegisterPayload) service.RegisterInput {
	return service.RegisterInput{
		Name:            payload.Name,
		Email:           payload.Email,
		Phone:           payload.Phone,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", nil)
	}
	return id, nil
}
