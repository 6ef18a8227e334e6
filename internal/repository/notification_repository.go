package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-hub/internal/domain"
)

// NotificationRepository manages the append-only per-user inbox.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	// GetOrCreate inserts the notification unless an identical one
	// (recipient, request, message) already exists; the boolean reports
	// whether a row was created. This is what makes the SLA sweep
	// idempotent.
	GetOrCreate(ctx context.Context, n *domain.Notification) (bool, error)
	GetByID(ctx context.Context, id int64) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id int64) error
	CountUnread(ctx context.Context, recipientID int64) (int, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, message, related_request_id, is_read, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, message, related_request_id)
        VALUES ($1,$2,$3)
        RETURNING id, is_read, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		n.RecipientID,
		n.Message,
		n.RelatedRequestID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
}

func (r *notificationRepository) GetOrCreate(ctx context.Context, n *domain.Notification) (bool, error) {
	const query = `
        INSERT INTO notifications (recipient_id, message, related_request_id)
        SELECT $1, $2, $3
        WHERE NOT EXISTS (
            SELECT 1 FROM notifications
            WHERE recipient_id=$1 AND message=$2 AND related_request_id IS NOT DISTINCT FROM $3)
        RETURNING id, is_read, created_at`
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		n.RecipientID,
		n.Message,
		n.RelatedRequestID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id int64) (*domain.Notification, error) {
	const query = `SELECT ` + notificationColumns + ` FROM notifications WHERE id=$1`
	var n domain.Notification
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&n.ID,
		&n.RecipientID,
		&n.Message,
		&n.RelatedRequestID,
		&n.IsRead,
		&n.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID int64, unreadOnly bool, limit int) ([]domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC`
	args := []any{recipientID}
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $2`
	}

	rows, err := querier(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.RelatedRequestID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id int64) error {
	const query = `UPDATE notifications SET is_read=TRUE WHERE id=$1`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_id=$1 AND NOT is_read`
	var count int
	if err := querier(ctx, r.pool).QueryRow(ctx, query, recipientID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
