package dto

import (
	"time"

	"github.com/spec-kit/request-hub/internal/domain"
)

// CreateRequestPayload is the intake form a requestor submits.
type CreateRequestPayload struct {
	AccountName    string `json:"account_name"`
	AccountManager string `json:"account_manager"`
	Product        string `json:"product"`
	Priority       string `json:"priority"`
	Engagement     string `json:"engagement"`
	Description    string `json:"description"`
}

// UpdateRequestPayload carries requestor edits; absent fields stay as-is.
type UpdateRequestPayload struct {
	AccountManager *string `json:"account_manager"`
	Product        *string `json:"product"`
	Priority       *string `json:"priority"`
	Engagement     *string `json:"engagement"`
	Description    *string `json:"description"`
}

// AdminUpdateRequestPayload is the admin management form.
type AdminUpdateRequestPayload struct {
	Priority       *string `json:"priority"`
	Status         *string `json:"status"`
	EngineerID     *int64  `json:"engineer_id"`
	RemoveEngineer bool    `json:"remove_engineer"`
	DueDate        *string `json:"due_date"`
	EndDate        *string `json:"end_date"`
	ClearEndDate   bool    `json:"clear_end_date"`
	Description    *string `json:"description"`
}

// RequestSummary is the list representation of a request.
type RequestSummary struct {
	ID             int64     `json:"id"`
	ReferenceCode  string    `json:"reference_code"`
	AccountName    string    `json:"account_name"`
	AccountManager string    `json:"account_manager"`
	Product        string    `json:"product"`
	Priority       string    `json:"priority"`
	Engagement     string    `json:"engagement"`
	Status         string    `json:"status"`
	StartDate      string    `json:"start_date"`
	DueDate        *string   `json:"due_date"`
	EndDate        *string   `json:"end_date"`
	EngineerID     *int64    `json:"engineer_id"`
	Overdue        bool      `json:"overdue"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RequestDetail extends the summary with the description and the status
// log stream.
type RequestDetail struct {
	RequestSummary
	Description string              `json:"description"`
	RequestorID int64               `json:"requestor_id"`
	StatusLogs  []StatusLogResponse `json:"status_logs"`
}

// LinkResponse carries a generated outbound contact link.
type LinkResponse struct {
	URL string `json:"url"`
}

// StatusLogResponse is one entry of the update stream.
type StatusLogResponse struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStatusLogPayload posts an update to the stream.
type CreateStatusLogPayload struct {
	Message string `json:"message"`
}

// NudgePayload asks a participant for a status update.
type NudgePayload struct {
	RecipientID int64 `json:"recipient_id"`
}

// SweepResponse summarizes an SLA sweep run.
type SweepResponse struct {
	Processed int `json:"processed"`
	Created   int `json:"notifications_created"`
}

// RequestDateLayout is the wire format for the calendar-day fields.
const RequestDateLayout = "2006-01-02"

// FormatDay renders a calendar-day pointer, nil-safe.
func FormatDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.Format(RequestDateLayout)
	return &formatted
}

// NewRequestSummary maps a domain request.
func NewRequestSummary(req *domain.Request, overdue bool) RequestSummary {
	return RequestSummary{
		ID:             req.ID,
		ReferenceCode:  req.ReferenceCode,
		AccountName:    req.AccountName,
		AccountManager: req.AccountManager,
		Product:        string(req.Product),
		Priority:       string(req.Priority),
		Engagement:     string(req.Engagement),
		Status:         string(req.Status),
		StartDate:      req.StartDate.Format(RequestDateLayout),
		DueDate:        FormatDay(req.DueDate),
		EndDate:        FormatDay(req.EndDate),
		EngineerID:     req.EngineerID,
		Overdue:        overdue,
		CreatedAt:      req.CreatedAt,
		UpdatedAt:      req.UpdatedAt,
	}
}
