package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/tally/internal/domain"
	"github.com/iho/tally/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository. It is the only
// component that touches the balance column, and only AdjustBalance may
// change it after creation.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

const accountColumns = `id, name, email, balance::text, created_at, updated_at`

// Create inserts a new account. The balance starts at zero regardless of the
// struct's field; creation is the one balance write outside the ledger engine.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (id, name, email, balance, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`

	_, err = pool.Exec(ctx, query,
		account.ID,
		account.Name,
		account.Email,
		account.CreatedAt,
		account.UpdatedAt,
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	return scanAccount(pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate retrieves an account inside a unit with a FOR UPDATE row
// lock. Concurrent units mutating the same account serialize on this lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	return scanAccount(pgxTx.QueryRow(ctx, query, id))
}

// UpdateFields replaces the display attributes. The balance column is not in
// the statement at all.
func (r *AccountRepository) UpdateFields(ctx context.Context, tx usecase.Transaction, id, name, email string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE accounts SET name = $2, email = $3, updated_at = $4 WHERE id = $1`

	_, err := pgxTx.Exec(ctx, query, id, name, email, updatedAt)

	return err
}

// AdjustBalance applies an additive correction to the balance. Called only by
// the ledger engine, inside the unit that mutates the matching entry.
func (r *AccountRepository) AdjustBalance(ctx context.Context, tx usecase.Transaction, id string, delta decimal.Decimal, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE accounts SET balance = balance + $2::numeric, updated_at = $3 WHERE id = $1`

	tag, err := pgxTx.Exec(ctx, query, id, delta.String(), updatedAt)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// Delete removes the account row inside a unit.
func (r *AccountRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts with pagination.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	pool, err := r.store.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := make([]*domain.Account, 0)

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account domain.Account
		balance string
	)

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&balance,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return nil, err
	}

	return &account, nil
}
