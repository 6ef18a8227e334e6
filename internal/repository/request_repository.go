package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-hub/internal/domain"
)

// RequestFilter captures list parameters for dashboards and export.
type RequestFilter struct {
	RequestorID *int64
	EngineerID  *int64
	AccountID   *int64
	Statuses    []domain.RequestStatus
	Priorities  []domain.RequestPriority
	SearchTerm  *string
	// OrderByDue sorts by status then due date (admin/engineer dashboards);
	// the default is newest first.
	OrderByDue bool
	Limit      int
	Offset     int
}

// RequestRepository encapsulates request persistence.
type RequestRepository interface {
	Create(ctx context.Context, req *domain.Request) error
	Update(ctx context.Context, req *domain.Request) error
	SetReferenceCode(ctx context.Context, id int64, code string) error
	GetByID(ctx context.Context, id int64) (*domain.Request, error)
	ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error)
	CountOngoingByEngineer(ctx context.Context, engineerID, excludeID int64) (int, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Request, error)
	CountOverdue(ctx context.Context, asOf time.Time) (int, error)
	Delete(ctx context.Context, id int64) error
}

type requestRepository struct {
	pool *pgxpool.Pool
}

// NewRequestRepository instantiates the repository.
func NewRequestRepository(pool *pgxpool.Pool) RequestRepository {
	return &requestRepository{pool: pool}
}

const requestColumns = `r.id, r.reference_code, r.requestor_id, r.account_id, a.name,
               r.account_manager, r.product_category, r.priority, r.engagement_type,
               r.start_date, r.due_date, r.end_date, r.engineer_id, r.status,
               r.description, r.created_at, r.updated_at`

const requestBase = `SELECT ` + requestColumns + ` FROM requests r JOIN accounts a ON a.id = r.account_id`

func (r *requestRepository) Create(ctx context.Context, req *domain.Request) error {
	const query = `
        INSERT INTO requests (reference_code, requestor_id, account_id, account_manager,
            product_category, priority, engagement_type, start_date, due_date, end_date,
            engineer_id, status, description)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		req.ReferenceCode,
		req.RequestorID,
		req.AccountID,
		req.AccountManager,
		req.Product,
		req.Priority,
		req.Engagement,
		req.StartDate,
		req.DueDate,
		req.EndDate,
		req.EngineerID,
		req.Status,
		req.Description,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
}

func (r *requestRepository) Update(ctx context.Context, req *domain.Request) error {
	// Reference code, requestor, account and start date are immutable here.
	const query = `
        UPDATE requests SET account_manager=$1, product_category=$2, priority=$3,
            engagement_type=$4, due_date=$5, end_date=$6, engineer_id=$7, status=$8,
            description=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query,
		req.AccountManager,
		req.Product,
		req.Priority,
		req.Engagement,
		req.DueDate,
		req.EndDate,
		req.EngineerID,
		req.Status,
		req.Description,
		req.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetReferenceCode performs the follow-up write that stamps the derived
// code once the generated id is known. It never overwrites an existing
// code.
func (r *requestRepository) SetReferenceCode(ctx context.Context, id int64, code string) error {
	const query = `UPDATE requests SET reference_code=$1 WHERE id=$2 AND reference_code=''`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, code, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*domain.Request, error) {
	const query = requestBase + ` WHERE r.id=$1`
	var req domain.Request
	if err := scanRequest(querier(ctx, r.pool).QueryRow(ctx, query, id), &req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) ListWithFilter(ctx context.Context, filter RequestFilter) ([]domain.Request, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequestorID != nil {
		args = append(args, *filter.RequestorID)
		clauses = append(clauses, fmt.Sprintf("r.requestor_id=$%d", len(args)))
	}
	if filter.EngineerID != nil {
		args = append(args, *filter.EngineerID)
		clauses = append(clauses, fmt.Sprintf("r.engineer_id=$%d", len(args)))
	}
	if filter.AccountID != nil {
		args = append(args, *filter.AccountID)
		clauses = append(clauses, fmt.Sprintf("r.account_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("r.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("r.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(r.reference_code) LIKE %s OR LOWER(a.name) LIKE %s OR LOWER(r.account_manager) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	order := "r.created_at DESC"
	if filter.OrderByDue {
		order = "r.status, r.due_date NULLS LAST"
	}

	limitClause := ""
	if filter.Limit > 0 {
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		limitClause = fmt.Sprintf(" LIMIT %d OFFSET %d", filter.Limit, offset)
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s%s",
		requestBase, strings.Join(clauses, " AND "), order, limitClause)

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

// CountOngoingByEngineer counts an engineer's ongoing requests, excluding
// the record under mutation so updates do not count themselves.
func (r *requestRepository) CountOngoingByEngineer(ctx context.Context, engineerID, excludeID int64) (int, error) {
	const query = `
        SELECT COUNT(*) FROM requests
        WHERE engineer_id=$1 AND status=$2 AND id<>$3`
	var count int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, engineerID, domain.RequestStatusOngoing, excludeID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *requestRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]domain.Request, error) {
	const query = requestBase + ` WHERE r.status=$1 AND r.due_date < $2 ORDER BY r.due_date`
	rows, err := querier(ctx, r.pool).Query(ctx, query, domain.RequestStatusOngoing, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *requestRepository) CountOverdue(ctx context.Context, asOf time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM requests WHERE status=$1 AND due_date < $2`
	var count int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, domain.RequestStatusOngoing, asOf).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a request. Notifications and status logs cascade at the
// schema level.
func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM requests WHERE id=$1`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanRequest(row pgx.Row, req *domain.Request) error {
	return row.Scan(
		&req.ID,
		&req.ReferenceCode,
		&req.RequestorID,
		&req.AccountID,
		&req.AccountName,
		&req.AccountManager,
		&req.Product,
		&req.Priority,
		&req.Engagement,
		&req.StartDate,
		&req.DueDate,
		&req.EndDate,
		&req.EngineerID,
		&req.Status,
		&req.Description,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
}

func scanRequests(rows pgx.Rows) ([]domain.Request, error) {
	var result []domain.Request
	for rows.Next() {
		var req domain.Request
		if err := scanRequest(rows, &req); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
