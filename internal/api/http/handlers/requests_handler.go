package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/request-hub/internal/api/dto"
	"github.com/spec-kit/request-hub/internal/auth"
	"github.com/spec-kit/request-hub/internal/directory"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/service"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// RequestsHandler serves the request endpoints shared by all roles.
type RequestsHandler struct {
	requests   *service.RequestService
	statusLogs *service.StatusLogService
}

// NewRequestsHandler constructs handler.
func NewRequestsHandler(requests *service.RequestService, statusLogs *service.StatusLogService) *RequestsHandler {
	return &RequestsHandler{requests: requests, statusLogs: statusLogs}
}

// CreateRequest POST /requests.
func (h *RequestsHandler) CreateRequest(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var payload dto.CreateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.RequestCreateInput{
		AccountName:    payload.AccountName,
		AccountManager: payload.AccountManager,
		Product:        domain.ProductCategory(payload.Product),
		Priority:       domain.RequestPriority(payload.Priority),
		Engagement:     domain.EngagementType(payload.Engagement),
		Description:    payload.Description,
	}
	req, err := h.requests.Create(c.Context(), user.ID, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewRequestSummary(req, h.requests.IsOverdue(req))})
}

// ListRequests GET /requests.
func (h *RequestsHandler) ListRequests(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requests, err := h.requests.ListForUser(c.Context(), user)
	if err != nil {
		return err
	}
	items := make([]dto.RequestSummary, 0, len(requests))
	for i := range requests {
		items = append(items, dto.NewRequestSummary(&requests[i], h.requests.IsOverdue(&requests[i])))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetRequest GET /requests/:id.
func (h *RequestsHandler) GetRequest(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	req, err := h.requests.GetForUser(c.Context(), user, requestID)
	if err != nil {
		return err
	}
	logs, err := h.statusLogs.List(c.Context(), user, requestID)
	if err != nil {
		return err
	}

	detail := dto.RequestDetail{
		RequestSummary: dto.NewRequestSummary(req, h.requests.IsOverdue(req)),
		Description:    req.Description,
		RequestorID:    req.RequestorID,
		StatusLogs:     statusLogResponses(logs),
	}
	return c.JSON(fiber.Map{"data": detail})
}

// UpdateRequest PATCH /requests/:id.
func (h *RequestsHandler) UpdateRequest(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var payload dto.UpdateRequestPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.RequestorUpdateInput{
		AccountManager: payload.AccountManager,
		Description:    payload.Description,
	}
	if payload.Product != nil {
		product := domain.ProductCategory(*payload.Product)
		input.Product = &product
	}
	if payload.Priority != nil {
		priority := domain.RequestPriority(*payload.Priority)
		input.Priority = &priority
	}
	if payload.Engagement != nil {
		engagement := domain.EngagementType(*payload.Engagement)
		input.Engagement = &engagement
	}

	req, err := h.requests.RequestorUpdate(c.Context(), user.ID, requestID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRequestSummary(req, h.requests.IsOverdue(req))})
}

// AddStatusLog POST /requests/:id/logs.
func (h *RequestsHandler) AddStatusLog(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	var payload dto.CreateStatusLogPayload
	if err := c.BodyParser(&payload); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	entry, err := h.statusLogs.Append(c.Context(), user, requestID, payload.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": statusLogResponse(entry)})
}

// ListStatusLogs GET /requests/:id/logs.
func (h *RequestsHandler) ListStatusLogs(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	requestID, err := parseID(c.Params("id"))
	if err != nil {
		return err
	}
	logs, err := h.statusLogs.List(c.Context(), user, requestID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": statusLogResponses(logs)})
}

// FormOptions GET /requests/options. Returns the choice lists the intake
// form renders.
func (h *RequestsHandler) FormOptions(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"products": []domain.ProductCategory{
			domain.ProductAzure, domain.ProductM365, domain.ProductVMware,
			domain.ProductOmnissa, domain.ProductHybrid, domain.ProductOthers,
		},
		"priorities":  []domain.RequestPriority{domain.RequestPriorityMedium, domain.RequestPriorityHigh},
		"engagements": []domain.EngagementType{domain.EngagementOpportunity, domain.EngagementTraining, domain.EngagementSupport, domain.EngagementInquiry},
		"account_managers": directory.AccountManagerNames(),
	}})
}

func statusLogResponse(entry *domain.StatusLog) dto.StatusLogResponse {
	return dto.StatusLogResponse{
		ID:        entry.ID,
		AuthorID:  entry.AuthorID,
		Message:   entry.Message,
		CreatedAt: entry.CreatedAt,
	}
}

func statusLogResponses(entries []domain.StatusLog) []dto.StatusLogResponse {
	resp := make([]dto.StatusLogResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, statusLogResponse(&entries[i]))
	}
	return resp
}
