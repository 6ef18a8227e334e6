package events

import (
	"time"

	"github.com/spec-kit/request-hub/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request_created"
	EventRequestStatusChanged EventType = "request_status_changed"
	EventRequestAssigned      EventType = "request_assigned"
	EventStatusLogAdded       EventType = "status_log_added"
)

// Event represents a domain event emitted after a request mutation has
// committed. Events feed side channels (log and webhook subscribers); the
// transactional inbox records are derived by Diff instead.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID int64       `json:"request_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	ReferenceCode string                 `json:"reference_code"`
	AccountName   string                 `json:"account_name"`
	Priority      domain.RequestPriority `json:"priority"`
	DueDate       *time.Time             `json:"due_date,omitempty"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// RequestAssignedPayload payload.
type RequestAssignedPayload struct {
	EngineerID *int64 `json:"engineer_id,omitempty"`
}

// StatusLogAddedPayload payload.
type StatusLogAddedPayload struct {
	StatusLogID int64  `json:"status_log_id"`
	AuthorID    int64  `json:"author_id"`
	BodyPreview string `json:"body_preview"`
}
