package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/request-hub/internal/domain"
)

// AccountRepository manages customer account persistence. Accounts are
// created lazily by name and never mutated afterwards.
type AccountRepository interface {
	GetOrCreateByName(ctx context.Context, name string) (*domain.Account, error)
	GetByID(ctx context.Context, id int64) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Delete(ctx context.Context, id int64) error
}

type accountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository builds the repository.
func NewAccountRepository(pool *pgxpool.Pool) AccountRepository {
	return &accountRepository{pool: pool}
}

func (r *accountRepository) GetOrCreateByName(ctx context.Context, name string) (*domain.Account, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	const query = `
        INSERT INTO accounts (name)
        VALUES ($1)
        ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
        RETURNING id, name, created_at`
	var account domain.Account
	if err := querier(ctx, r.pool).QueryRow(ctx, query, name).Scan(
		&account.ID,
		&account.Name,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	const query = `SELECT id, name, created_at FROM accounts WHERE id=$1`
	var account domain.Account
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.Name,
		&account.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) List(ctx context.Context) ([]domain.Account, error) {
	const query = `SELECT id, name, created_at FROM accounts ORDER BY name`
	rows, err := querier(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Account
	for rows.Next() {
		var account domain.Account
		if err := rows.Scan(&account.ID, &account.Name, &account.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, account)
	}
	return result, rows.Err()
}

// Delete removes an account. The foreign key from requests is RESTRICT,
// so deletion fails while any request still references the account.
func (r *accountRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM accounts WHERE id=$1`
	_, err := querier(ctx, r.pool).Exec(ctx, query, id)
	return err
}
