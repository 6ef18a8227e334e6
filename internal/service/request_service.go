package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/events"
	"github.com/spec-kit/request-hub/internal/repository"
	"github.com/spec-kit/request-hub/internal/sla"
	"github.com/spec-kit/request-hub/internal/workday"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// RequestService owns the request lifecycle: creation, validation,
// due-date derivation, reference-code assignment, the engineer workload
// cap, and the notifications every mutation implies.
type RequestService struct {
	requests      repository.RequestRepository
	accounts      repository.AccountRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	tx            repository.TxRunner
	dispatcher    events.Dispatcher
	now           func() time.Time
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo      repository.RequestRepository
	AccountRepo      repository.AccountRepository
	UserRepo         repository.UserRepository
	NotificationRepo repository.NotificationRepository
	Tx               repository.TxRunner
	Dispatcher       events.Dispatcher
	// Now overrides the clock in tests.
	Now func() time.Time
}

// RequestCreateInput describes the intake form a requestor submits.
type RequestCreateInput struct {
	AccountName    string
	AccountManager string
	Product        domain.ProductCategory
	Priority       domain.RequestPriority
	Engagement     domain.EngagementType
	Description    string
}

// RequestorUpdateInput describes the fields a requestor may still edit
// before an engineer is assigned.
type RequestorUpdateInput struct {
	AccountManager *string
	Product        *domain.ProductCategory
	Priority       *domain.RequestPriority
	Engagement     *domain.EngagementType
	Description    *string
}

// AdminUpdateInput describes the admin management form. Nil fields are
// left unchanged; RemoveEngineer and ClearEndDate express explicit nulls.
type AdminUpdateInput struct {
	Priority       *domain.RequestPriority
	Status         *domain.RequestStatus
	EngineerID     *int64
	RemoveEngineer bool
	DueDate        *time.Time
	EndDate        *time.Time
	ClearEndDate   bool
	Description    *string
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &RequestService{
		requests:      deps.RequestRepo,
		accounts:      deps.AccountRepo,
		users:         deps.UserRepo,
		notifications: deps.NotificationRepo,
		tx:            deps.Tx,
		dispatcher:    deps.Dispatcher,
		now:           now,
	}
}

// Create files a new request on behalf of a requestor. The account is
// resolved or lazily created by name, the due date is derived from the
// SLA policy exactly once, and the reference code is stamped in a
// follow-up write inside the same transaction once the id is known.
func (s *RequestService) Create(ctx context.Context, requestorID int64, input RequestCreateInput) (*domain.Request, error) {
	requestor, err := s.users.GetByID(ctx, requestorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": requestorID})
		}
		return nil, apperrors.MapError(err)
	}
	if requestor.Role != domain.RoleRequestor {
		return nil, apperrors.NewForbidden("only requestors may file requests")
	}

	accountName := strings.TrimSpace(input.AccountName)
	if accountName == "" {
		return nil, apperrors.NewValidationError("Account name is required.", map[string]any{"field": "account_name"})
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.RequestPriorityMedium
	}

	start := s.today()
	due := workday.AddWorkingDays(start, sla.Days(priority))

	req := &domain.Request{
		RequestorID:    requestor.ID,
		AccountManager: strings.TrimSpace(input.AccountManager),
		Product:        input.Product,
		Priority:       priority,
		Engagement:     input.Engagement,
		StartDate:      start,
		DueDate:        &due,
		Status:         domain.RequestStatusOngoing,
		Description:    strings.TrimSpace(input.Description),
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		account, err := s.accounts.GetOrCreateByName(ctx, accountName)
		if err != nil {
			return err
		}
		req.AccountID = account.ID
		req.AccountName = account.Name

		if err := s.validate(ctx, req); err != nil {
			return err
		}
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		req.ReferenceCode = domain.ReferenceCodeFor(req.ID)
		if err := s.requests.SetReferenceCode(ctx, req.ID, req.ReferenceCode); err != nil {
			return err
		}
		return s.persistNotifications(ctx, events.Diff(nil, req))
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		ActorID:   requestor.ID,
		Payload: events.RequestCreatedPayload{
			ReferenceCode: req.ReferenceCode,
			AccountName:   req.AccountName,
			Priority:      req.Priority,
			DueDate:       req.DueDate,
		},
	})
	return req, nil
}

// RequestorUpdate applies intake edits by the owning requestor. Edits are
// blocked once an engineer has been assigned.
func (s *RequestService) RequestorUpdate(ctx context.Context, requestorID, requestID int64, input RequestorUpdateInput) (*domain.Request, error) {
	old, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if old.RequestorID != requestorID {
		return nil, apperrors.NewForbidden("access denied")
	}
	if old.EngineerID != nil {
		return nil, apperrors.NewConflict("request can no longer be edited once an engineer is assigned", nil)
	}

	updated := *old
	if input.AccountManager != nil {
		updated.AccountManager = strings.TrimSpace(*input.AccountManager)
	}
	if input.Product != nil {
		updated.Product = *input.Product
	}
	if input.Priority != nil {
		updated.Priority = *input.Priority
	}
	if input.Engagement != nil {
		updated.Engagement = *input.Engagement
	}
	if input.Description != nil {
		updated.Description = strings.TrimSpace(*input.Description)
	}

	return s.saveMutation(ctx, requestorID, old, &updated)
}

// AdminUpdate applies the admin management form: priority, status,
// engineer, dates and description. Due date and reference code are never
// recomputed here.
func (s *RequestService) AdminUpdate(ctx context.Context, actor *domain.User, requestID int64, input AdminUpdateInput) (*domain.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	old, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	updated := *old
	if input.Priority != nil {
		updated.Priority = *input.Priority
	}
	if input.Status != nil {
		updated.Status = *input.Status
	}
	if input.RemoveEngineer {
		updated.EngineerID = nil
	} else if input.EngineerID != nil {
		engineer, err := s.users.GetByID(ctx, *input.EngineerID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("engineer", map[string]any{"engineer_id": *input.EngineerID})
			}
			return nil, apperrors.MapError(err)
		}
		if engineer.Role != domain.RoleEngineer {
			return nil, apperrors.NewValidationError("selected user is not an engineer", map[string]any{"field": "engineer"})
		}
		updated.EngineerID = &engineer.ID
	}
	if input.DueDate != nil {
		due := truncateToDay(*input.DueDate)
		updated.DueDate = &due
	}
	if input.ClearEndDate {
		updated.EndDate = nil
	} else if input.EndDate != nil {
		end := truncateToDay(*input.EndDate)
		updated.EndDate = &end
	}
	if input.Description != nil {
		updated.Description = strings.TrimSpace(*input.Description)
	}

	return s.saveMutation(ctx, actor.ID, old, &updated)
}

// Delete removes a request and, via the schema, its notifications and
// status logs.
func (s *RequestService) Delete(ctx context.Context, actor *domain.User, requestID int64) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.requests.Delete(ctx, requestID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return apperrors.MapError(err)
	}
	return nil
}

// GetForUser fetches a request enforcing role-based visibility: a
// requestor sees their own, an engineer their assignments, an admin any.
func (s *RequestService) GetForUser(ctx context.Context, user *domain.User, requestID int64) (*domain.Request, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanViewRequest(user, req) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return req, nil
}

// ListForUser returns the role-scoped dashboard list. Admin and engineer
// lists are ordered by status then due date; requestors see newest first.
func (s *RequestService) ListForUser(ctx context.Context, user *domain.User) ([]domain.Request, error) {
	filter := repository.RequestFilter{}
	switch user.Role {
	case domain.RoleRequestor:
		filter.RequestorID = &user.ID
	case domain.RoleEngineer:
		filter.EngineerID = &user.ID
		filter.OrderByDue = true
	case domain.RoleAdmin:
		filter.OrderByDue = true
	default:
		return nil, apperrors.NewForbidden("unknown role")
	}
	result, err := s.requests.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListAll returns requests matching an arbitrary filter (admin screens,
// CSV export).
func (s *RequestService) ListAll(ctx context.Context, filter repository.RequestFilter) ([]domain.Request, error) {
	result, err := s.requests.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListEngineers returns the engineer roster for the assignment form.
func (s *RequestService) ListEngineers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	engineers, err := s.users.ListByRole(ctx, domain.RoleEngineer)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return engineers, nil
}

// OverdueCount reports how many ongoing requests have missed their due
// date as of today.
func (s *RequestService) OverdueCount(ctx context.Context) (int, error) {
	count, err := s.requests.CountOverdue(ctx, s.today())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// IsOverdue reports whether the request has missed its SLA target.
func (s *RequestService) IsOverdue(req *domain.Request) bool {
	return req.IsOverdue(s.today())
}

// CanViewRequest reports whether a user may see a request.
func CanViewRequest(user *domain.User, req *domain.Request) bool {
	switch user.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleRequestor:
		return req.RequestorID == user.ID
	case domain.RoleEngineer:
		return req.EngineerID != nil && *req.EngineerID == user.ID
	default:
		return false
	}
}

// IsParticipant reports whether a user may post to or read the status log
// of a request: its requestor, its assigned engineer, or any admin.
func IsParticipant(user *domain.User, req *domain.Request) bool {
	return CanViewRequest(user, req)
}

// saveMutation runs the shared persist path: validate, update and write
// the derived notifications inside one transaction, then publish events.
func (s *RequestService) saveMutation(ctx context.Context, actorID int64, old, updated *domain.Request) (*domain.Request, error) {
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.validate(ctx, updated); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, updated); err != nil {
			return err
		}
		return s.persistNotifications(ctx, events.Diff(old, updated))
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if old.Status != updated.Status {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventRequestStatusChanged,
			RequestID: updated.ID,
			ActorID:   actorID,
			Payload: events.RequestStatusChangedPayload{
				OldStatus: old.Status,
				NewStatus: updated.Status,
			},
		})
	}
	if !engineerEqual(old.EngineerID, updated.EngineerID) {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventRequestAssigned,
			RequestID: updated.ID,
			ActorID:   actorID,
			Payload:   events.RequestAssignedPayload{EngineerID: updated.EngineerID},
		})
	}
	return updated, nil
}

// validate enforces the lifecycle invariants before every persist. It may
// mutate req: completing a request without an explicit end date fills in
// today's date.
func (s *RequestService) validate(ctx context.Context, req *domain.Request) error {
	if req.EngineerID != nil && req.Status == domain.RequestStatusOngoing {
		count, err := s.requests.CountOngoingByEngineer(ctx, *req.EngineerID, req.ID)
		if err != nil {
			return apperrors.MapError(err)
		}
		if count >= domain.MaxOngoingPerEngineer {
			return apperrors.NewConflict("Selected engineer already has 5 ongoing requests.", map[string]any{
				"field":       "engineer",
				"engineer_id": *req.EngineerID,
			})
		}
	}
	if req.EndDate != nil && req.Status != domain.RequestStatusCompleted {
		return apperrors.NewConflict("Mark the request as completed before setting an end date.", map[string]any{
			"field": "end_date",
		})
	}
	if req.Status == domain.RequestStatusCompleted && req.EndDate == nil {
		end := s.today()
		req.EndDate = &end
	}
	return nil
}

func (s *RequestService) persistNotifications(ctx context.Context, pending []events.NotificationEvent) error {
	for _, ev := range pending {
		requestID := ev.RequestID
		n := &domain.Notification{
			RecipientID:      ev.RecipientID,
			Message:          ev.Message,
			RelatedRequestID: &requestID,
		}
		if err := s.notifications.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *RequestService) getRequest(ctx context.Context, id int64) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *RequestService) today() time.Time {
	return truncateToDay(s.now())
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func engineerEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func requireAdmin(user *domain.User) error {
	if user == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if user.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
