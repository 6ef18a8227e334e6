package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/api/dto"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/service"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// NotificationsHandler serves the signed-in user's inbox.
type NotificationsHandler struct {
	notifications *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notifications *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{notifications: notifications}
}

// List GET /notifications.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	unreadOnly := c.QueryBool("unread")
	limit := parseInt(c.Query("limit"), 50)
	items, err := h.notifications.List(c.Context(), user.ID, unreadOnly, limit)
	if err != nil {
		return err
	}
	resp := make([]dto.NotificationResponse, 0, len(items))
	for i := range items {
		resp = append(resp, dto.NewNotificationResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": resp})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	notificationID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.notifications.MarkRead(c.Context(), user, notificationID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"read": true}})
}

// UnreadCount GET /notifications/unread/count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.notifications.UnreadCount(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Unread: count}})
}
