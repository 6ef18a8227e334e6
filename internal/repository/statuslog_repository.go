package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-hub/internal/domain"
)

// StatusLogRepository manages the per-request update stream.
type StatusLogRepository interface {
	Create(ctx context.Context, entry *domain.StatusLog) error
	ListByRequest(ctx context.Context, requestID int64) ([]domain.StatusLog, error)
}

type statusLogRepository struct {
	pool *pgxpool.Pool
}

// NewStatusLogRepository builds the repository.
func NewStatusLogRepository(pool *pgxpool.Pool) StatusLogRepository {
	return &statusLogRepository{pool: pool}
}

func (r *statusLogRepository) Create(ctx context.Context, entry *domain.StatusLog) error {
	const query = `
        INSERT INTO status_logs (request_id, author_id, message)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		entry.RequestID,
		entry.AuthorID,
		entry.Message,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *statusLogRepository) ListByRequest(ctx context.Context, requestID int64) ([]domain.StatusLog, error) {
	const query = `
        SELECT id, request_id, author_id, message, created_at
        FROM status_logs WHERE request_id=$1 ORDER BY created_at ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusLog
	for rows.Next() {
		var entry domain.StatusLog
		if err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.AuthorID,
			&entry.Message,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
