package domain

import "time"

// StatusLog is one entry in the ordered update stream attached to a
// request. Entries are append-only and listed oldest first.
type StatusLog struct {
	ID        int64
	RequestID int64
	AuthorID  int64
	Message   string
	CreatedAt time.Time
}
