package dto

import (
	"time"

	"github.com/spec-kit/request-hub/internal/domain"
)

// NotificationResponse is one inbox entry.
type NotificationResponse struct {
	ID               int64     `json:"id"`
	Message          string    `json:"message"`
	RelatedRequestID *int64    `json:"related_request_id,omitempty"`
	IsRead           bool      `json:"is_read"`
	CreatedAt        time.Time `json:"created_at"`
}

// UnreadCountResponse is the badge value.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// NewNotificationResponse maps a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:               n.ID,
		Message:          n.Message,
		RelatedRequestID: n.RelatedRequestID,
		IsRead:           n.IsRead,
		CreatedAt:        n.CreatedAt,
	}
}
