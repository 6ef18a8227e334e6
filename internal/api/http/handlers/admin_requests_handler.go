package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/api/dto"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/repository"
	"github.com/spec-kit/request-hub/internal/service"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// AdminRequestsHandler serves the admin management endpoints.
type AdminRequestsHandler struct {
	requests      *service.RequestService
	notifications *service.NotificationService
	sweep         *service.SweepService
	export        *service.ExportService
}

// NewAdminRequestsHandler constructs handler.
func NewAdminRequestsHandler(requests *service.RequestService, notifications *service.NotificationService, sweep *service.SweepService, export *service.ExportService) *AdminRequestsHandler {
	return &AdminRequestsHandler{requests: requests, notifications: notifications, sweep: sweep, export: export}
}

// ListRequests GET /admin/requests.
func (h *AdminRequestsHandler) ListRequests(c *fiber.Ctx) error {
	filter := parseAdminRequestQuery(c)
	requests, err := h.requests.ListAll(c.Context(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestSummary(&requests[i], h.requests.IsOverdue(&requests[i])))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateRequest PATCH /admin/requests/:id.
func (h *AdminRequestsHandler) UpdateRequest(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var payload dto.AdminUpdateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.AdminUpdateInput{
		EngineerID:     payload.EngineerID,
		RemoveEngineer: payload.RemoveEngineer,
		ClearEndDate:   payload.ClearEndDate,
		Description:    payload.Description,
	}
	if payload.Priority != nil {
		priority := domain.RequestPriority(*payload.Priority)
		input.Priority = &priority
	}
	if payload.Status != nil {
		status := domain.RequestStatus(*payload.Status)
		input.Status = &status
	}
	if input.DueDate, err = parseDay(payload.DueDate, "due_date"); err != nil {
		return err
	}
	if input.EndDate, err = parseDay(payload.EndDate, "end_date"); err != nil {
		return err
	}

	req, err := h.requests.AdminUpdate(c.Context(), actor, requestID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestSummary(req, h.requests.IsOverdue(req))})
}

// DeleteRequest DELETE /admin/requests/:id.
func (h *AdminRequestsHandler) DeleteRequest(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	if err := h.requests.Delete(c.Context(), actor, requestID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Nudge POST /admin/requests/:id/nudge.
func (h *AdminRequestsHandler) Nudge(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var payload dto.NudgePayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	notification, err := h.notifications.Nudge(c.Context(), actor, requestID, payload.RecipientID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewNotificationResponse(notification)})
}

// ListEngineers GET /admin/engineers. Feeds the assignment dropdown.
func (h *AdminRequestsHandler) ListEngineers(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	engineers, err := h.requests.ListEngineers(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(engineers))
	for i := range engineers {
		items = append(items, dto.NewUserResponse(&engineers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// OverdueCount GET /admin/requests/overdue/count.
func (h *AdminRequestsHandler) OverdueCount(c *fiber.Ctx) error {
	count, err := h.requests.OverdueCount(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"overdue": count}})
}

// ExportCSV GET /admin/requests/export/csv.
func (h *AdminRequestsHandler) ExportCSV(c *fiber.Ctx) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", service.ExportFilename(time.Now())))
	return h.export.WriteCSV(c.Context(), c.Response().BodyWriter(), actor)
}

// OutlookLink GET /admin/requests/:id/links/outlook.
func (h *AdminRequestsHandler) OutlookLink(c *fiber.Ctx) error {
	return h.contactLink(c, h.export.OutlookLink)
}

// TeamsLink GET /admin/requests/:id/links/teams.
func (h *AdminRequestsHandler) TeamsLink(c *fiber.Ctx) error {
	return h.contactLink(c, h.export.TeamsLink)
}

func (h *AdminRequestsHandler) contactLink(c *fiber.Ctx, build func(context.Context, *domain.User, int64) (string, error)) error {
	actor, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	link, err := build(c.Context(), actor, requestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LinkResponse{URL: link}})
}

// RunSweep POST /admin/sweep.
func (h *AdminRequestsHandler) RunSweep(c *fiber.Ctx) error {
	result, err := h.sweep.Run(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.SweepResponse{
		Processed: result.Processed,
		Created:   result.Created,
	}})
}

func parseAdminRequestQuery(c *fiber.Ctx) repository.RequestFilter {
	filter := repository.RequestFilter{OrderByDue: true}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.RequestStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.RequestPriority(strings.TrimSpace(part)))
		}
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		filter.SearchTerm = &search
	}
	if engineerStr := c.Query("engineer_id"); engineerStr != "" {
		if id, err := strconv.ParseInt(engineerStr, 10, 64); err == nil && id > 0 {
			filter.EngineerID = &id
		}
	}
	if accountStr := c.Query("account_id"); accountStr != "" {
		if id, err := strconv.ParseInt(accountStr, 10, 64); err == nil && id > 0 {
			filter.AccountID = &id
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseDay(val *string, field string) (*time.Time, error) {
	if val == nil || *val == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.RequestDateLayout, *val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD", map[string]any{"field": field})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
