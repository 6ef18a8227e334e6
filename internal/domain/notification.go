package domain

import "time"

// Notification is an append-only inbox entry for a user. Only the read
// flag ever changes after creation.
type Notification struct {
	ID               int64
	RecipientID      int64
	Message          string
	RelatedRequestID *int64
	IsRead           bool
	CreatedAt        time.Time
}
