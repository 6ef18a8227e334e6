package events

import "github.com/spec-kit/request-hub/internal/domain"

// NotificationEvent is one pending inbox entry derived from a request
// mutation. The lifecycle engine persists these inside the same
// transaction as the mutation itself.
type NotificationEvent struct {
	RecipientID int64
	RequestID   int64
	Message     string
}

// Diff compares the persisted snapshot of a request against its updated
// state and returns the notifications the change implies. old is nil when
// the request was just created. The completion and assignment rules are
// independent; callers must not rely on the order of the returned slice.
func Diff(old, updated *domain.Request) []NotificationEvent {
	code := updated.ReferenceCode
	if code == "" {
		code = domain.ReferenceCodeFor(updated.ID)
	}

	var out []NotificationEvent

	wasCompleted := old != nil && old.Status == domain.RequestStatusCompleted
	if updated.Status == domain.RequestStatusCompleted && !wasCompleted {
		out = append(out, NotificationEvent{
			RecipientID: updated.RequestorID,
			RequestID:   updated.ID,
			Message:     "Request " + code + " has been completed.",
		})
		if updated.EngineerID != nil {
			out = append(out, NotificationEvent{
				RecipientID: *updated.EngineerID,
				RequestID:   updated.ID,
				Message:     "Request " + code + " closed by admin.",
			})
		}
	}

	if updated.EngineerID != nil {
		var previous *int64
		if old != nil {
			previous = old.EngineerID
		}
		if previous == nil || *previous != *updated.EngineerID {
			out = append(out, NotificationEvent{
				RecipientID: *updated.EngineerID,
				RequestID:   updated.ID,
				Message:     "You have been assigned to request " + code,
			})
		}
	}

	return out
}
