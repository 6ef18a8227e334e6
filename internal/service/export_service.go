package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/request-hub/internal/directory"
	"github.com/spec-kit/request-hub/internal/domain"
	"github.com/spec-kit/request-hub/internal/repository"
	apperrors "github.com/spec-kit/request-hub/pkg/util"
)

const (
	exportDateLayout      = "2006-01-02"
	exportTimestampLayout = "2006-01-02 15:04:05"
)

// ExportService produces the admin CSV export and the outbound contact
// links (Outlook mail draft, Teams chat) for a request.
type ExportService struct {
	requests repository.RequestRepository
	users    repository.UserRepository
}

// NewExportService creates the service.
func NewExportService(requests repository.RequestRepository, users repository.UserRepository) *ExportService {
	return &ExportService{requests: requests, users: users}
}

var exportHeader = []string{
	"Reference",
	"Account",
	"Account Manager",
	"Account Manager Email",
	"Engineer",
	"Engineer Email",
	"Priority",
	"Status",
	"Engagement",
	"Start Date",
	"Due Date",
	"End Date",
	"Description",
	"Created",
	"Updated",
}

// WriteCSV streams every request as CSV. Admin only.
func (e *ExportService) WriteCSV(ctx context.Context, w io.Writer, actor *domain.User) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	rows, err := e.requests.ListWithFilter(ctx, repository.RequestFilter{OrderByDue: true})
	if err != nil {
		return apperrors.MapError(err)
	}

	engineers, err := e.engineersByID(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return apperrors.MapError(err)
	}
	for i := range rows {
		if err := writer.Write(exportRow(&rows[i], engineers)); err != nil {
			return apperrors.MapError(err)
		}
	}
	writer.Flush()
	return apperrors.MapError(writer.Error())
}

// ExportFilename is the suggested download name for an export taken now.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("requests-%s.csv", now.Format(exportDateLayout))
}

// OutlookLink builds a mailto: URL opening a prefilled mail draft to the
// request's account manager. Admin only; a manager without a mailbox on
// file is a user-facing error.
func (e *ExportService) OutlookLink(ctx context.Context, actor *domain.User, requestID int64) (string, error) {
	req, err := e.loadForLinks(ctx, actor, requestID)
	if err != nil {
		return "", err
	}
	managerEmail, err := managerEmail(req)
	if err != nil {
		return "", err
	}

	engineerName := "-"
	if req.EngineerID != nil {
		engineer, err := e.users.GetByID(ctx, *req.EngineerID)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		engineerName = engineer.Name
	}

	subject := fmt.Sprintf("Request %s - %s", req.ReferenceCode, req.AccountName)
	body := strings.Join([]string{
		"Hello " + req.AccountManager + ",",
		"",
		"Reference: " + req.ReferenceCode,
		"Account: " + req.AccountName,
		"Engineer: " + engineerName,
		"Priority: " + string(req.Priority),
		"Status: " + string(req.Status),
		"Due date: " + dayOrDash(req.DueDate),
		"Engagement: " + string(req.Engagement),
		"Description: " + flattenNewlines(req.Description),
	}, "\r\n")

	return fmt.Sprintf("mailto:%s?subject=%s&body=%s",
		managerEmail, mailtoEscape(subject), mailtoEscape(body)), nil
}

// TeamsLink builds a Microsoft Teams deep link opening a chat between the
// account manager and the assigned engineer, with the request as topic.
// Admin only; both participants need an email on file.
func (e *ExportService) TeamsLink(ctx context.Context, actor *domain.User, requestID int64) (string, error) {
	req, err := e.loadForLinks(ctx, actor, requestID)
	if err != nil {
		return "", err
	}
	managerEmail, err := managerEmail(req)
	if err != nil {
		return "", err
	}
	if req.EngineerID == nil {
		return "", apperrors.NewValidationError("Assign an engineer before starting a Teams chat.", map[string]any{
			"field": "engineer",
		})
	}
	engineer, err := e.users.GetByID(ctx, *req.EngineerID)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	if strings.TrimSpace(engineer.Email) == "" {
		return "", apperrors.NewValidationError("No email is on file for the assigned engineer.", map[string]any{
			"field": "engineer",
		})
	}

	return fmt.Sprintf("https://teams.microsoft.com/l/chat/0/0?users=%s&topicName=%s",
		url.QueryEscape(managerEmail+","+engineer.Email),
		url.QueryEscape("Request "+req.ReferenceCode)), nil
}

func (e *ExportService) loadForLinks(ctx context.Context, actor *domain.User, requestID int64) (*domain.Request, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req, err := e.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}
	return req, nil
}

func (e *ExportService) engineersByID(ctx context.Context) (map[int64]domain.User, error) {
	engineers, err := e.users.ListByRole(ctx, domain.RoleEngineer)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	byID := make(map[int64]domain.User, len(engineers))
	for _, engineer := range engineers {
		byID[engineer.ID] = engineer
	}
	return byID, nil
}

func exportRow(req *domain.Request, engineers map[int64]domain.User) []string {
	managerEmail, _ := directory.EmailFor(req.AccountManager)
	engineerName, engineerEmail := "", ""
	if req.EngineerID != nil {
		if engineer, ok := engineers[*req.EngineerID]; ok {
			engineerName = engineer.Name
			engineerEmail = engineer.Email
		}
	}
	return []string{
		req.ReferenceCode,
		req.AccountName,
		req.AccountManager,
		managerEmail,
		engineerName,
		engineerEmail,
		string(req.Priority),
		string(req.Status),
		string(req.Engagement),
		req.StartDate.Format(exportDateLayout),
		dayOrEmpty(req.DueDate),
		dayOrEmpty(req.EndDate),
		flattenNewlines(req.Description),
		req.CreatedAt.Format(exportTimestampLayout),
		req.UpdatedAt.Format(exportTimestampLayout),
	}
}

func managerEmail(req *domain.Request) (string, error) {
	email, ok := directory.EmailFor(req.AccountManager)
	if !ok {
		return "", apperrors.NewValidationError("No email is on file for the account manager.", map[string]any{
			"field": "account_manager",
		})
	}
	return email, nil
}

func dayOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(exportDateLayout)
}

func dayOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(exportDateLayout)
}

func flattenNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// mailtoEscape percent-encodes a mailto header value. QueryEscape uses
// '+' for spaces, which mail clients do not decode.
func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
