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
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

// StatusLogService manages the append-only update stream on a request.
type StatusLogService struct {
	statusLogs repository.StatusLogRepository
	requests   repository.RequestRepository
	dispatcher events.Dispatcher
}

// StatusLogDependencies bundles collaborators.
type StatusLogDependencies struct {
	StatusLogRepo repository.StatusLogRepository
	RequestRepo   repository.RequestRepository
	Dispatcher    events.Dispatcher
}

// NewStatusLogService creates the service.
func NewStatusLogService(deps StatusLogDependencies) *StatusLogService {
	return &StatusLogService{
		statusLogs: deps.StatusLogRepo,
		requests:   deps.RequestRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Append adds an update to the request's stream. Only participants of the
// request and admins may post; blank messages are rejected.
func (s *StatusLogService) Append(ctx context.Context, actor *domain.User, requestID int64, message string) (*domain.StatusLog, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("Status update message cannot be empty.", map[string]any{
			"field": "message",
		})
	}

	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && !IsParticipant(actor, req) {
		return nil, apperrors.NewForbidden("access denied")
	}

	entry := &domain.StatusLog{
		RequestID: requestID,
		AuthorID:  actor.ID,
		Message:   message,
	}
	if err := s.statusLogs.Create(ctx, entry); err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventStatusLogAdded,
			RequestID: requestID,
			ActorID:   actor.ID,
			Timestamp: time.Now().UTC(),
			Payload: events.StatusLogAddedPayload{
				StatusLogID: entry.ID,
				AuthorID:    actor.ID,
				BodyPreview: preview(message, 120),
			},
		})
	}
	return entry, nil
}

// List returns the stream oldest first, for any user allowed to view the
// request.
func (s *StatusLogService) List(ctx context.Context, actor *domain.User, requestID int64) ([]domain.StatusLog, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !CanViewRequest(actor, req) {
		return nil, apperrors.NewForbidden("access denied")
	}

	entries, err := s.statusLogs.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *StatusLogService) loadRequest(ctx context.Context, requestID int64) (*domain.Request, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

// preview caps the message at max runes so the event payload never
// carries a truncated multi-byte character.
func preview(message string, max int) string {
	runes := []rune(message)
	if len(runes) <= max {
		return message
	}
	return string(runes[:max])
}
